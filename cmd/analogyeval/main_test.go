package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/config"
	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/storage"
)

const testVectors = `6 2
man 1 0
woman 0.9 0.3
king 0.2 1
queen 0.1 1.1
paris 0.7 0.7
france 0.6 0.8
`

const testAnalogies = `: gender
man woman king queen
king queen man woman
man woman king unicorn
: capitals
paris france paris france
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEvaluateCommand_writesReportAndStoresRun(t *testing.T) {
	dir := t.TempDir()
	vectors := writeFixture(t, dir, "vectors.txt", testVectors)
	analogies := writeFixture(t, dir, "questions.txt", testAnalogies)
	reportPath := filepath.Join(dir, "out", "report.csv")
	db := filepath.Join(dir, "runs.db")

	out, err := execute(t, "evaluate",
		"--embeddings", vectors,
		"--analogies", analogies,
		"--workers", "3",
		"--measures", "ranks,cos,w2w4",
		"--centroids",
		"--output", reportPath,
		"--db", db,
	)
	if err != nil {
		t.Fatalf("evaluate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "mulrank") {
		t.Errorf("summary should list methods, got:\n%s", out)
	}

	f, err := os.Open(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := "analogy,cos,baserank,addrank,mulrank,w2w4,category"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Errorf("header = %q, want %q", got, wantHeader)
	}
	// The analogy with an unknown term is dropped at parse time.
	if len(rows) != 4 {
		t.Fatalf("expected 3 data rows, got %d", len(rows)-1)
	}
	for _, row := range rows[1:] {
		for _, col := range row[2:5] {
			r, err := strconv.Atoi(col)
			if err != nil || r < 1 || r > 6 {
				t.Errorf("rank %q out of range in %v", col, row)
			}
		}
	}
	if rows[3][6] != ": capitals" {
		t.Errorf("category = %q", rows[3][6])
	}

	store, err := storage.NewSQLiteStorage(db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), models.ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 stored run, got %d", len(runs))
	}
	run := runs[0]
	if run.VocabularySize != 6 || run.Dimensions != 2 || run.AnalogyCount != 3 || run.Workers != 3 {
		t.Errorf("run = %+v", run)
	}
	if !strings.HasPrefix(run.AnalogiesID, "sha256:") || !strings.HasPrefix(run.EmbeddingsID, "input:") {
		t.Errorf("input ids = %q, %q", run.EmbeddingsID, run.AnalogiesID)
	}
	centroids, err := store.GetCentroids(context.Background(), run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(centroids) != 2 {
		t.Errorf("centroids = %+v", centroids)
	}

	listOut, err := execute(t, "runs", "list", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(listOut, run.ID) {
		t.Errorf("runs list should include %s:\n%s", run.ID, listOut)
	}
	showOut, err := execute(t, "runs", "show", run.ID, "--db", db, "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(showOut, wantHeader) {
		t.Errorf("runs show csv:\n%s", showOut)
	}
	if _, err := execute(t, "runs", "delete", run.ID, "--db", db); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "runs", "delete", run.ID, "--db", db); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestEvaluateCommand_defaultFileNameAndCategory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFixture(t, dir, "analogyeval.yaml", `
embeddings:
  path: ./vectors.txt
analogies:
  path: ./questions.txt
  category: ": capitals"
output:
  dir: ./reports
  format: json
`)
	writeFixture(t, dir, "vectors.txt", testVectors)
	writeFixture(t, dir, "questions.txt", testAnalogies)

	if out, err := execute(t, "evaluate", "--config", cfgPath); err != nil {
		t.Fatalf("evaluate: %v\n%s", err, out)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "reports", "analogy_experiment_stats_*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one default-named report, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "gender") {
		t.Error("report should only hold the selected category")
	}
}

func TestEvaluateCommand_errors(t *testing.T) {
	dir := t.TempDir()
	vectors := writeFixture(t, dir, "vectors.txt", testVectors)
	analogies := writeFixture(t, dir, "questions.txt", testAnalogies)
	out := filepath.Join(dir, "r.csv")

	tests := []struct {
		name string
		args []string
	}{
		{"missing embeddings", []string{"evaluate", "--analogies", analogies}},
		{"missing analogies", []string{"evaluate", "--embeddings", vectors}},
		{"zero workers", []string{"evaluate", "--embeddings", vectors, "--analogies", analogies, "--workers", "0", "--output", out}},
		{"unknown measure", []string{"evaluate", "--embeddings", vectors, "--analogies", analogies, "--measures", "bogus", "--output", out}},
		{"unknown category", []string{"evaluate", "--embeddings", vectors, "--analogies", analogies, "--category", ": nope", "--output", out}},
		{"unknown format", []string{"evaluate", "--embeddings", vectors, "--analogies", analogies, "--format", "fasttext", "--output", out}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPipelineWatch_rerunsOnChangeAndStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Embeddings.Path = writeFixture(t, dir, "vectors.txt", testVectors)
	cfg.Analogies.Path = writeFixture(t, dir, "questions.txt", testAnalogies)
	cfg.Output.Path = filepath.Join(dir, "report.csv")
	cfg.Storage.DatabasePath = filepath.Join(dir, "runs.db")
	cfg.Evaluation.Workers = 2

	p, err := newPipeline(cfg, zap.NewNop(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	runs := func() int64 {
		n, err := p.store.CountRuns(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return n
	}
	waitFor := func(what string, cond func() bool, tick func()) {
		t.Helper()
		deadline := time.Now().Add(10 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s", what)
			}
			if tick != nil {
				tick()
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	waitFor("the initial run", func() bool { return runs() >= 1 }, nil)

	// The watcher starts after the first run, so keep editing until a re-run lands.
	edits := 0
	waitFor("a re-run after editing the analogies", func() bool { return runs() >= 2 }, func() {
		edits++
		content := testAnalogies + strings.Repeat("man woman king queen\n", edits)
		if err := os.WriteFile(cfg.Analogies.Path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestPareCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "questions.txt", testAnalogies)
	lexicon := writeFixture(t, dir, "lexicon.tsv", "entropy\tman\t0.2\nentropy\tking\t3.0\n")
	outPath := filepath.Join(dir, "pared.txt")

	out, err := execute(t, "pare", "--in", in, "--out", outPath, "--lexicon", lexicon, "--any-entropy-max", "1")
	if err != nil {
		t.Fatalf("pare: %v\n%s", err, out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, ": gender\n") || !strings.Contains(got, ": capitals\n") {
		t.Errorf("category lines should be copied:\n%s", got)
	}
	if strings.Contains(got, "king") {
		t.Errorf("analogies with a high-entropy term should be dropped:\n%s", got)
	}
	if !strings.Contains(got, "paris france paris france") {
		t.Errorf("unrelated analogy should be kept:\n%s", got)
	}

	if _, err := execute(t, "pare", "--in", in); err == nil {
		t.Error("expected error without --out")
	}
	if _, err := execute(t, "pare", "--in", in, "--out", outPath, "--min12", "0.9", "--max12", "0.1"); err == nil {
		t.Error("expected error for an inverted window")
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	vectors := writeFixture(t, dir, "vectors.txt", testVectors)
	analogies := writeFixture(t, dir, "questions.txt", testAnalogies)

	for _, name := range []string{"vectors.snap", "vectors.bin"} {
		converted := filepath.Join(dir, name)
		out, err := execute(t, "convert", "--embeddings", vectors, "--out", converted, "--top-k", "4")
		if err != nil {
			t.Fatalf("convert %s: %v\n%s", name, err, out)
		}
		if !strings.Contains(out, "wrote 4 x 2 vectors") {
			t.Errorf("convert output: %q", out)
		}
		if _, err := execute(t, "evaluate", "--embeddings", converted, "--analogies", analogies,
			"--output", filepath.Join(dir, name+".csv")); err != nil {
			t.Fatalf("evaluate from %s: %v", name, err)
		}
	}
	if _, err := execute(t, "convert", "--embeddings", vectors, "--out", filepath.Join(dir, "x"), "--to", "glove"); err == nil {
		t.Error("expected error for an unwritable format")
	}
}

func TestSolveCommand(t *testing.T) {
	dir := t.TempDir()
	vectors := writeFixture(t, dir, "vectors.txt", testVectors)

	out, err := execute(t, "solve", "--embeddings", vectors, "--k", "2", "--json", "Man", "woman", "king")
	if err != nil {
		t.Fatalf("solve: %v\n%s", err, out)
	}
	var answers ranking.Answers
	if err := json.Unmarshal([]byte(out), &answers); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	for _, m := range ranking.Methods {
		got := answers.Get(m)
		if len(got) != 2 {
			t.Fatalf("%s: expected 2 answers, got %+v", m, got)
		}
		for _, n := range got {
			if n.Key == "man" || n.Key == "woman" || n.Key == "king" {
				t.Errorf("%s: query word %q returned as an answer", m, n.Key)
			}
		}
	}
	if answers.Additive[0].Key != "queen" {
		t.Errorf("additive answer = %+v, want queen first", answers.Additive)
	}

	table, err := execute(t, "solve", "--embeddings", vectors, "--k", "1", "man", "woman", "king")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(table, "man : woman :: king : ?") || !strings.Contains(table, "mulrank") {
		t.Errorf("table output:\n%s", table)
	}

	_, err = execute(t, "solve", "--embeddings", vectors, "man", "wmoan", "king")
	if !errors.Is(err, ranking.ErrUnknownTerm) {
		t.Fatalf("expected ErrUnknownTerm, got %v", err)
	}
	if !strings.Contains(err.Error(), "did you mean woman") {
		t.Errorf("error should suggest a spelling: %v", err)
	}
	if _, err := execute(t, "solve", "--embeddings", vectors, "man", "woman"); err == nil {
		t.Error("expected error for two words")
	}
}

func TestApplyEvaluateFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Evaluation.Workers = 7
	cfg.Embeddings.Path = "/from/config.bin"

	cmd := evaluateCmd(&globalOptions{})
	if err := cmd.ParseFlags([]string{"--no-normalize", "--measures", "cos", "--db", "runs.db"}); err != nil {
		t.Fatal(err)
	}
	f := &evaluateFlags{noNormalize: true, measures: []string{"cos"}, db: "runs.db", workers: config.DefaultWorkers}
	applyEvaluateFlags(cmd, f, cfg)

	if cfg.Evaluation.Workers != 7 {
		t.Errorf("unset flag should keep config workers, got %d", cfg.Evaluation.Workers)
	}
	if cfg.Embeddings.Path != "/from/config.bin" {
		t.Errorf("embeddings path overwritten: %q", cfg.Embeddings.Path)
	}
	if cfg.Embeddings.NormalizeOrDefault() {
		t.Error("--no-normalize should disable normalization")
	}
	if len(cfg.Evaluation.Measures) != 1 || cfg.Storage.DatabasePath != "runs.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, resolved, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" || cfg.Evaluation.Workers != config.DefaultWorkers {
		t.Errorf("defaults expected, got %q %+v", resolved, cfg.Evaluation)
	}
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "analogyeval version dev\n" {
		t.Errorf("got %q", out)
	}
}
