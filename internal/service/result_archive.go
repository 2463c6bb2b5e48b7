package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
)

// ArchiveKey is the key value store entry holding the serialized archive.
const ArchiveKey = "grading_archive"

// ResultArchive is the durable, most-recent-first collection of grading results.
// Every mutation rewrites the whole collection before returning.
type ResultArchive struct {
	store repository.KeyValueRepository
	mu    sync.Mutex
}

// NewResultArchive constructs an archive on top of a key value store.
func NewResultArchive(store repository.KeyValueRepository) *ResultArchive {
	return &ResultArchive{store: store}
}

// List returns every archived result, most recent first.
func (a *ResultArchive) List(ctx context.Context) ([]models.GradingResult, error) {
	return a.load(ctx)
}

// Get returns the archived result with the given id.
func (a *ResultArchive) Get(ctx context.Context, id string) (models.GradingResult, error) {
	results, err := a.load(ctx)
	if err != nil {
		return models.GradingResult{}, err
	}
	if i := indexOf(results, id); i >= 0 {
		return results[i], nil
	}
	return models.GradingResult{}, ErrResultNotFound
}

// FindByStudentAndGroup returns the most recent result for the student in the group.
func (a *ResultArchive) FindByStudentAndGroup(ctx context.Context, studentID, group string) (models.GradingResult, bool, error) {
	results, err := a.load(ctx)
	if err != nil {
		return models.GradingResult{}, false, err
	}
	for _, result := range results {
		if result.BelongsTo(studentID, group) {
			return result, true, nil
		}
	}
	return models.GradingResult{}, false, nil
}

// FindDuplicateSource returns the student's result in the group that carries the
// fingerprint. When none does it falls back to the most recent result for the
// student in the group.
func (a *ResultArchive) FindDuplicateSource(ctx context.Context, studentID, group, fingerprint string) (models.GradingResult, bool, error) {
	results, err := a.load(ctx)
	if err != nil {
		return models.GradingResult{}, false, err
	}
	newest := -1
	for i, result := range results {
		if !result.BelongsTo(studentID, group) {
			continue
		}
		if fingerprint != "" && result.Fingerprint == fingerprint {
			return result, true, nil
		}
		if newest < 0 {
			newest = i
		}
	}
	if newest < 0 {
		return models.GradingResult{}, false, nil
	}
	return results[newest], true, nil
}

// Append stores a new result at the front of the collection.
func (a *ResultArchive) Append(ctx context.Context, result models.GradingResult) error {
	return a.mutate(ctx, func(results []models.GradingResult) ([]models.GradingResult, error) {
		if indexOf(results, result.ID) >= 0 {
			return nil, fmt.Errorf("%s: %w", result.ID, ErrDuplicateResultID)
		}
		return append([]models.GradingResult{result}, results...), nil
	})
}

// Replace substitutes the result with the given id in place. It reports whether an
// entry was replaced; an absent id is a no-op.
func (a *ResultArchive) Replace(ctx context.Context, id string, result models.GradingResult) (bool, error) {
	replaced := false
	err := a.mutate(ctx, func(results []models.GradingResult) ([]models.GradingResult, error) {
		i := indexOf(results, id)
		if i < 0 {
			return nil, nil
		}
		result.ID = id
		results[i] = result
		replaced = true
		return results, nil
	})
	return replaced, err
}

// Remove deletes the result with the given id and reports whether it existed.
func (a *ResultArchive) Remove(ctx context.Context, id string) (bool, error) {
	removed := false
	err := a.mutate(ctx, func(results []models.GradingResult) ([]models.GradingResult, error) {
		i := indexOf(results, id)
		if i < 0 {
			return nil, nil
		}
		removed = true
		return append(results[:i], results[i+1:]...), nil
	})
	return removed, err
}

// Clear empties the archive and persists the empty collection.
func (a *ResultArchive) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save(ctx, []models.GradingResult{})
}

// mutate applies fn under the archive lock. A nil slice from fn means no change.
func (a *ResultArchive) mutate(ctx context.Context, fn func([]models.GradingResult) ([]models.GradingResult, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	results, err := a.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(results)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	return a.save(ctx, updated)
}

func (a *ResultArchive) load(ctx context.Context) ([]models.GradingResult, error) {
	raw, found, err := a.store.Get(ctx, ArchiveKey)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []models.GradingResult{}, nil
	}

	var results []models.GradingResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	if results == nil {
		results = []models.GradingResult{}
	}
	return results, nil
}

func (a *ResultArchive) save(ctx context.Context, results []models.GradingResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := a.store.Set(ctx, ArchiveKey, string(payload)); err != nil {
		return fmt.Errorf("persist archive: %w", err)
	}
	return nil
}

func indexOf(results []models.GradingResult, id string) int {
	for i, result := range results {
		if result.ID == id {
			return i
		}
	}
	return -1
}
