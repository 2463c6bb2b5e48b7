package service

import (
	"strings"
	"sync"
)

// SubmissionRecord pairs a student with the fingerprint of a graded submission.
type SubmissionRecord struct {
	StudentID   string
	Fingerprint string
}

// SubmissionRegistry remembers, per group, which student handed in which content
// during the current session. It is never persisted.
type SubmissionRegistry struct {
	mu     sync.RWMutex
	groups map[string][]SubmissionRecord
}

// NewSubmissionRegistry returns an empty registry.
func NewSubmissionRegistry() *SubmissionRegistry {
	return &SubmissionRegistry{groups: map[string][]SubmissionRecord{}}
}

// RecordIfAbsent stores the triple unless it is already present. It reports whether
// a new record was added.
func (r *SubmissionRegistry) RecordIfAbsent(group, studentID, fingerprint string) bool {
	key := groupKey(group)
	studentID = strings.TrimSpace(studentID)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.groups[key] {
		if record.Fingerprint == fingerprint && sameStudent(record.StudentID, studentID) {
			return false
		}
	}
	r.groups[key] = append(r.groups[key], SubmissionRecord{StudentID: studentID, Fingerprint: fingerprint})
	return true
}

// FindMatch returns the first student, in recording order, of the group who handed
// in the same fingerprint, ignoring excludingStudentID.
func (r *SubmissionRegistry) FindMatch(group, fingerprint, excludingStudentID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.groups[groupKey(group)] {
		if record.Fingerprint == fingerprint && !sameStudent(record.StudentID, excludingStudentID) {
			return record.StudentID, true
		}
	}
	return "", false
}

// Records returns a copy of the records of a group in recording order.
func (r *SubmissionRegistry) Records(group string) []SubmissionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SubmissionRecord(nil), r.groups[groupKey(group)]...)
}

// Reset forgets every record.
func (r *SubmissionRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = map[string][]SubmissionRecord{}
}

func groupKey(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}

func sameStudent(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
