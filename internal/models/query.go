package models

import "fmt"

const (
	// DefaultListLimit is the page size when none is given.
	DefaultListLimit = 20
	// MaxListLimit caps the page size.
	MaxListLimit = 100
)

// ListQuery pages through stored runs, newest first.
type ListQuery struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate rejects a negative offset and normalizes the limit.
func (q *ListQuery) Validate() error {
	if q.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	return nil
}
