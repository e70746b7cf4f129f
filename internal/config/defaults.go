package config

import (
	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/pare"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/report"
)

const (
	// DefaultWorkers is the evaluator worker count.
	DefaultWorkers = 20
	// DefaultCacheSize is how many embedding tables the watch loop keeps loaded.
	DefaultCacheSize = 2
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Embeddings.Normalize == nil {
		t := true
		cfg.Embeddings.Normalize = &t
	}
	if cfg.Embeddings.CacheSize == 0 {
		cfg.Embeddings.CacheSize = DefaultCacheSize
	}
	if cfg.Analogies.CategoryMarker == "" {
		cfg.Analogies.CategoryMarker = analogy.DefaultMarker
	}
	if cfg.Evaluation.Workers == 0 {
		cfg.Evaluation.Workers = DefaultWorkers
	}
	if len(cfg.Evaluation.Measures) == 0 {
		cfg.Evaluation.Measures = append([]string(nil), report.DefaultMeasures...)
	}
	if cfg.Evaluation.ProgressInterval == 0 {
		cfg.Evaluation.ProgressInterval = ranking.DefaultProgressInterval
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = string(report.FormatCSV)
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pare.ProgressEvery == 0 {
		cfg.Pare.ProgressEvery = pare.DefaultProgressEvery
	}
}
