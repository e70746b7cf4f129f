// Package models defines the records produced, persisted and served for evaluation runs.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Run describes one evaluation: its inputs, settings and vocabulary.
type Run struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Embeddings   string `json:"embeddings" db:"embeddings"`
	EmbeddingsID string `json:"embeddings_id" db:"embeddings_id"`
	Format       string `json:"format" db:"format"`
	Analogies    string `json:"analogies" db:"analogies"`
	AnalogiesID  string `json:"analogies_id" db:"analogies_id"`

	// Category is empty when every category was evaluated.
	Category      string   `json:"category,omitempty" db:"category"`
	Measures      []string `json:"measures" db:"measures"`
	Workers       int      `json:"workers" db:"workers"`
	TopK          int      `json:"top_k" db:"top_k"`
	Normalized    bool     `json:"normalized" db:"normalized"`
	CaseSensitive bool     `json:"case_sensitive" db:"case_sensitive"`

	VocabularySize int   `json:"vocabulary_size" db:"vocabulary_size"`
	Dimensions     int   `json:"dimensions" db:"dimensions"`
	AnalogyCount   int   `json:"analogy_count" db:"analogy_count"`
	DurationMS     int64 `json:"duration_ms" db:"duration_ms"`
}

// NewRun returns a run with a fresh ID and creation time.
func NewRun() *Run {
	return &Run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

// Stamp is the creation time formatted for report file names.
func (r *Run) Stamp() string {
	return r.CreatedAt.Format("2006_01_02_15_04_05")
}
