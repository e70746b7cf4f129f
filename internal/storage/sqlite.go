// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/similarity"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		embeddings TEXT NOT NULL,
		embeddings_id TEXT,
		format TEXT,
		analogies TEXT NOT NULL,
		analogies_id TEXT,
		category TEXT,
		measures TEXT,
		workers INTEGER,
		top_k INTEGER,
		normalized INTEGER,
		case_sensitive INTEGER,
		vocabulary_size INTEGER,
		dimensions INTEGER,
		analogy_count INTEGER,
		duration_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS analogy_results (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		w1 TEXT NOT NULL,
		w2 TEXT NOT NULL,
		w3 TEXT NOT NULL,
		w4 TEXT NOT NULL,
		category TEXT NOT NULL,
		baserank INTEGER,
		addrank INTEGER,
		mulrank INTEGER,
		similarities TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_results_run_category ON analogy_results(run_id, category);

	CREATE TABLE IF NOT EXISTS pair_similarities (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		category TEXT NOT NULL,
		pair TEXT,
		similarity REAL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

const runColumns = `id, created_at, embeddings, embeddings_id, format, analogies, analogies_id,
	category, measures, workers, top_k, normalized, case_sensitive,
	vocabulary_size, dimensions, analogy_count, duration_ms`

// CreateRun inserts the run, its result rows and its centroid pairs in one
// transaction. Empty centroid categories are stored as a row with a NULL pair.
func (s *SQLiteStorage) CreateRun(ctx context.Context, rep *models.RunReport) error {
	run := rep.Run
	measuresJSON, err := json.Marshal(run.Measures)
	if err != nil {
		return fmt.Errorf("failed to marshal measures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Embeddings, run.EmbeddingsID, run.Format, run.Analogies, run.AnalogiesID,
		run.Category, string(measuresJSON), run.Workers, run.TopK, run.Normalized, run.CaseSensitive,
		run.VocabularySize, run.Dimensions, run.AnalogyCount, run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	resultStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO analogy_results (run_id, position, w1, w2, w3, w4, category, baserank, addrank, mulrank, similarities)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer resultStmt.Close()

	for i, r := range rep.Results {
		var base, add, mul sql.NullInt64
		if r.Ranks != nil {
			base = sql.NullInt64{Int64: int64(r.Ranks.Baseline), Valid: true}
			add = sql.NullInt64{Int64: int64(r.Ranks.Additive), Valid: true}
			mul = sql.NullInt64{Int64: int64(r.Ranks.Multiplicative), Valid: true}
		}
		var sims sql.NullString
		if len(r.Similarities) > 0 {
			b, err := json.Marshal(r.Similarities)
			if err != nil {
				return fmt.Errorf("failed to marshal similarities: %w", err)
			}
			sims = sql.NullString{String: string(b), Valid: true}
		}
		a := r.Analogy
		if _, err := resultStmt.ExecContext(ctx, run.ID, i, a.W1, a.W2, a.W3, a.W4, r.Category, base, add, mul, sims); err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	pairStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pair_similarities (run_id, position, category, pair, similarity) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer pairStmt.Close()

	pos := 0
	for _, c := range rep.Centroids {
		if c.Empty {
			if _, err := pairStmt.ExecContext(ctx, run.ID, pos, c.Category, nil, nil); err != nil {
				return fmt.Errorf("insert empty centroid: %w", err)
			}
			pos++
			continue
		}
		for _, p := range c.Pairs {
			if _, err := pairStmt.ExecContext(ctx, run.ID, pos, c.Category, p.Pair, p.Similarity); err != nil {
				return fmt.Errorf("insert pair similarity: %w", err)
			}
			pos++
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	var embeddingsID, format, analogiesID, category, measures sql.NullString
	err := row.Scan(&run.ID, &run.CreatedAt, &run.Embeddings, &embeddingsID, &format, &run.Analogies, &analogiesID,
		&category, &measures, &run.Workers, &run.TopK, &run.Normalized, &run.CaseSensitive,
		&run.VocabularySize, &run.Dimensions, &run.AnalogyCount, &run.DurationMS)
	if err != nil {
		return nil, err
	}
	run.EmbeddingsID = embeddingsID.String
	run.Format = format.String
	run.AnalogiesID = analogiesID.String
	run.Category = category.String
	if measures.String != "" {
		if err := json.Unmarshal([]byte(measures.String), &run.Measures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal measures: %w", err)
		}
	}
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, q models.ListQuery) ([]*models.Run, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		q.Limit, q.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and everything stored for it.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"analogy_results", "pair_similarities"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return err
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// GetResults returns a run's rows in evaluation order, optionally for one category.
func (s *SQLiteStorage) GetResults(ctx context.Context, runID, category string) ([]models.AnalogyResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w1, w2, w3, w4, category, baserank, addrank, mulrank, similarities
		 FROM analogy_results WHERE run_id = ? AND (? = '' OR category = ?) ORDER BY position`,
		runID, category, category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.AnalogyResult{}
	for rows.Next() {
		var a analogy.Analogy
		var r models.AnalogyResult
		var base, add, mul sql.NullInt64
		var sims sql.NullString
		if err := rows.Scan(&a.W1, &a.W2, &a.W3, &a.W4, &r.Category, &base, &add, &mul, &sims); err != nil {
			return nil, err
		}
		r.RunID = runID
		r.Analogy = a
		if base.Valid {
			r.Ranks = &ranking.Ranks{
				Baseline:       int(base.Int64),
				Additive:       int(add.Int64),
				Multiplicative: int(mul.Int64),
			}
		}
		if sims.Valid {
			if err := json.Unmarshal([]byte(sims.String), &r.Similarities); err != nil {
				return nil, fmt.Errorf("failed to unmarshal similarities: %w", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetPairSimilarities returns a run's centroid pairs in stored order.
func (s *SQLiteStorage) GetPairSimilarities(ctx context.Context, runID string) ([]models.PairSimilarity, error) {
	rows, err := s.queryPairs(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := []models.PairSimilarity{}
	for _, r := range rows {
		if r.pair.Valid {
			out = append(out, models.PairSimilarity{RunID: runID, Category: r.category, Pair: r.pair.String, Similarity: r.sim.Float64})
		}
	}
	return out, nil
}

// GetCentroids regroups a run's pairs by category, restoring empty categories.
func (s *SQLiteStorage) GetCentroids(ctx context.Context, runID string) ([]similarity.CentroidResult, error) {
	rows, err := s.queryPairs(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := []similarity.CentroidResult{}
	for _, r := range rows {
		if n := len(out); n == 0 || out[n-1].Category != r.category {
			out = append(out, similarity.CentroidResult{Category: r.category, Pairs: []similarity.PairSimilarity{}})
		}
		last := &out[len(out)-1]
		if !r.pair.Valid {
			last.Empty = true
			continue
		}
		last.Pairs = append(last.Pairs, similarity.PairSimilarity{Pair: r.pair.String, Similarity: r.sim.Float64})
	}
	return out, nil
}

type pairRow struct {
	category string
	pair     sql.NullString
	sim      sql.NullFloat64
}

func (s *SQLiteStorage) queryPairs(ctx context.Context, runID string) ([]pairRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, pair, similarity FROM pair_similarities WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pairRow
	for rows.Next() {
		var r pairRow
		if err := rows.Scan(&r.category, &r.pair, &r.sim); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Size returns the bytes used by the database and its WAL files.
func (s *SQLiteStorage) Size() (int64, error) {
	return DiskUsageBytes(s.path, s.path+"-wal", s.path+"-shm")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
