// Package storage defines the persistence interface for evaluation runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/similarity"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Storage persists runs together with their per-analogy rows and centroid pairs.
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, rep *models.RunReport) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, q models.ListQuery) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Result operations; an empty category selects every row.
	GetResults(ctx context.Context, runID, category string) ([]models.AnalogyResult, error)
	GetPairSimilarities(ctx context.Context, runID string) ([]models.PairSimilarity, error)
	GetCentroids(ctx context.Context, runID string) ([]similarity.CentroidResult, error)

	// Stats
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
