package record

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"malsig/internal/features"
	"malsig/internal/patterns"
	"malsig/internal/sample"
	"malsig/pkg/types"
)

func testInputs(t *testing.T) (*sample.Sample, *features.FeatureSet, []patterns.Pattern, *patterns.Result) {
	t.Helper()

	s := &sample.Sample{
		Path: "evil.exe",
		Data: []byte("irrelevant"),
		Meta: types.FileMetadata{
			Size:             10,
			CreationTime:     1713150000,
			ModificationTime: 1713150100,
			AccessTime:       1713150200,
		},
	}

	fs := &features.FeatureSet{
		Hash: features.HashSHA256(s.Data),
		Structure: features.StructuralInfo{
			Sections: []features.Section{
				{Name: ".text"},
				{Name: ".data"},
			},
			Imports:     []string{"KERNEL32.dll", "VirtualAlloc"},
			Annotations: []string{"Truncated section .data: declared 4096 bytes at offset 512, clamped to 512"},
		},
		Entropy: features.EntropyMap{
			features.WholeFileKey: 6.1,
			".text":               7.2,
			".data":               1.5,
		},
		Strings: []string{"cmd.exe /c", "http://evil.example", "benign marker"},
		HexDump: "6972",
	}

	pats := []patterns.Pattern{
		{Expression: `cmd\.exe`, Weight: 4},
		{Expression: `https?://[^\s]+`, Weight: 3},
		{Expression: `unmatched`, Weight: 1},
	}
	res := &patterns.Result{
		Counts:         patterns.MatchCounts{`cmd\.exe`: 1, `https?://[^\s]+`: 1},
		FlaggedIndices: []int{0, 1},
	}
	return s, fs, pats, res
}

func TestBuildAssemblesRecord(t *testing.T) {
	s, fs, pats, res := testInputs(t)
	b := &Builder{StringPreview: 100}

	rec := b.Build(s, fs, pats, res, []string{"Eicar-Test-Signature"})

	assert.Equal(t, fs.Hash, rec.FileHash)
	assert.Equal(t, s.Meta, rec.Metadata)
	assert.Equal(t, int64(10), rec.BinarySize)
	assert.Equal(t, "6972", rec.HexDump)
	assert.Equal(t, features.ChecksumNoMatch, rec.ChecksumValidation)

	// Sections keep parse order with entropy resolved per name.
	require.Len(t, rec.Sections, 2)
	assert.Equal(t, types.SectionEntropy{Name: ".text", Entropy: 7.2}, rec.Sections[0])
	assert.Equal(t, types.SectionEntropy{Name: ".data", Entropy: 1.5}, rec.Sections[1])

	assert.Equal(t, []string{"KERNEL32.dll", "VirtualAlloc"}, rec.Imports)
	assert.Equal(t, []string{"Eicar-Test-Signature"}, rec.ExternalMatches)

	// Matched patterns appear in registration order; unmatched ones do not.
	assert.Equal(t, []string{`cmd\.exe`, `https?://[^\s]+`}, rec.SignatureMatches)

	require.Len(t, rec.IOCLogs, 5)
	assert.Equal(t, `Matched pattern: cmd\.exe (count 1, weight 4)`, rec.IOCLogs[0])
	assert.Equal(t, `Matched pattern: https?://[^\s]+ (count 1, weight 3)`, rec.IOCLogs[1])
	assert.Equal(t, "Found string: cmd.exe /c", rec.IOCLogs[2])
	assert.Equal(t, "Found string: http://evil.example", rec.IOCLogs[3])
	assert.Contains(t, rec.IOCLogs[4], "Truncated section .data")
}

func TestBuildChecksumKnownMalware(t *testing.T) {
	s, fs, pats, res := testInputs(t)
	b := &Builder{KnownChecksums: map[string]string{"evil.exe": fs.Hash}}

	rec := b.Build(s, fs, pats, res, nil)
	assert.Equal(t, features.ChecksumKnownMalware, rec.ChecksumValidation)
}

func TestBuildStringPreviewBound(t *testing.T) {
	s, fs, pats, res := testInputs(t)
	b := &Builder{StringPreview: 2}

	rec := b.Build(s, fs, pats, res, nil)
	assert.Equal(t, []string{"cmd.exe /c", "http://evil.example"}, rec.Strings)
	assert.Len(t, rec.AllStrings, 3)
}

func TestBuildEmptyCollectionsSerializeAsArrays(t *testing.T) {
	s := &sample.Sample{Path: "empty.bin"}
	fs := features.ExtractAll(s, 4, zerolog.Nop())
	b := &Builder{}

	rec := b.Build(s, fs, nil, &patterns.Result{Counts: patterns.MatchCounts{}}, nil)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	doc := string(raw)
	assert.Contains(t, doc, `"imports":[]`)
	assert.Contains(t, doc, `"strings":[]`)
	assert.Contains(t, doc, `"signature_matches":[]`)
	assert.Contains(t, doc, `"ioc_logs":[]`)
	assert.Contains(t, doc, `"external_matches":[]`)
	assert.NotContains(t, doc, "null")
}

func TestBuildJSONRoundTrip(t *testing.T) {
	s, fs, pats, res := testInputs(t)
	b := &Builder{StringPreview: 100}
	rec := b.Build(s, fs, pats, res, []string{"Sig.A"})

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var back types.FeatureRecord
	require.NoError(t, json.Unmarshal(raw, &back))

	// AllStrings is deliberately excluded from serialization.
	rec.AllStrings = nil
	assert.Equal(t, rec, &back)
}
