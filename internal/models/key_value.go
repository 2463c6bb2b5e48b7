package models

import "time"

// KeyValue is a single entry of the durable string-keyed store.
type KeyValue struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name used by the key value store.
func (KeyValue) TableName() string { return "key_values" }
