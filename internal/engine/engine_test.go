package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"malsig/internal/reporting"
	"malsig/pkg/types"
)

func testConfig() *types.Config {
	return &types.Config{
		Performance: types.Performance{Concurrency: 2},
		Output:      types.Output{Format: "console"},
		Analysis: types.Analysis{
			MinStringLength: 4,
			StringPreview:   100,
			MaxSampleSize:   1 << 20,
		},
		Timeouts: types.Timeouts{LoadMS: 5000},
		Patterns: []types.PatternConfig{
			{Expression: `https?://[^\s]+`, Weight: 3},
			{Expression: `cmd\.exe`, Weight: 4},
		},
		LogLevel: "error",
	}
}

func writeSampleTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dropper.bin"),
		[]byte("fetch http://198.51.100.7/stage2 then spawn cmd.exe /c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "benign.txt"),
		[]byte("nothing suspicious in here"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "beacon.bin"),
		[]byte("call home to http://198.51.100.7/beacon"), 0o644))
	return dir
}

func TestEngineRunProducesJSONReport(t *testing.T) {
	dir := writeSampleTree(t)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	e, err := NewEngine(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, e.Run(&Task{
		Paths:        []string{dir},
		ReportPath:   reportPath,
		OutputFormat: "json",
	}))

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var doc struct {
		Results []reporting.SampleDocument `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Results, 3)

	byPath := make(map[string]reporting.SampleDocument, len(doc.Results))
	for _, d := range doc.Results {
		byPath[filepath.Base(d.Path)] = d
	}

	dropper := byPath["dropper.bin"]
	require.NotNil(t, dropper.Record)
	assert.ElementsMatch(t,
		[]string{`https?://[^\s]+`, `cmd\.exe`},
		dropper.Record.SignatureMatches)
	assert.NotEmpty(t, dropper.Record.FileHash)
	assert.Greater(t, dropper.Record.Entropy["__file__"], 0.0)

	benign := byPath["benign.txt"]
	require.NotNil(t, benign.Record)
	assert.Empty(t, benign.Record.SignatureMatches)

	beacon := byPath["beacon.bin"]
	require.NotNil(t, beacon.Record)
	assert.Equal(t, []string{`https?://[^\s]+`}, beacon.Record.SignatureMatches)
}

func TestEngineRunRespectsExclusions(t *testing.T) {
	dir := writeSampleTree(t)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	e, err := NewEngine(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, e.Run(&Task{
		Paths:      []string{dir},
		Exclusions: []string{filepath.Join(dir, "nested")},
		ReportPath: reportPath,
	}))

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var doc struct {
		Results []reporting.SampleDocument `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Results, 2)
	for _, d := range doc.Results {
		assert.NotContains(t, d.Path, "beacon.bin")
	}
}

func TestAnalyzeSampleMissingFileIsIsolated(t *testing.T) {
	e, err := NewEngine(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	res := e.analyzeSample(filepath.Join(t.TempDir(), "gone.bin"))
	require.NotNil(t, res)
	assert.ErrorIs(t, res.Error, types.ErrNotFound)
	assert.Nil(t, res.Record)
}

func TestAnalyzeSampleExternalScanDegrades(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.bin")
	require.NoError(t, os.WriteFile(path, []byte("content with http://h.example/x"), 0o644))

	cfg := testConfig()
	cfg.External.Enabled = true
	cfg.External.ClamdSocket = filepath.Join(dir, "no-such-clamd.ctl")
	cfg.Timeouts.ExternalScanMS = 200

	e, err := NewEngine(cfg, zerolog.Nop())
	require.NoError(t, err)

	res := e.analyzeSample(path)
	require.NoError(t, res.Error)
	require.NotNil(t, res.Record)
	// Scan failure degrades to an empty verdict list, never a sample error.
	assert.Empty(t, res.Record.ExternalMatches)
	assert.Equal(t, []string{`https?://[^\s]+`}, res.Record.SignatureMatches)
}

func TestFindFilesDeduplicatesTargets(t *testing.T) {
	dir := writeSampleTree(t)
	single := filepath.Join(dir, "benign.txt")

	files, err := findFiles([]string{dir, single, single}, nil, zerolog.Nop())
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, f := range files {
		seen[f]++
	}
	assert.Len(t, files, 3)
	assert.Equal(t, 1, seen[single])
}
