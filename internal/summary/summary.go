package summary

import (
	"fmt"
	"sort"

	"github.com/grd/stat"

	"malsig/internal/features"
	"malsig/pkg/types"
)

// BatchSummary aggregates one batch run. Per-sample failures are isolated
// and collected here instead of aborting the remaining samples.
type BatchSummary struct {
	TotalSamples       int
	Succeeded          int
	Failed             int
	Errors             []string
	TotalMatches       int
	UniquePatterns     int
	PatternTotals      map[string]int
	ExternalDetections int
	MeanFileEntropy    float64
}

// Build computes the batch summary over all sample results.
func Build(results []*types.SampleResult) *BatchSummary {
	s := &BatchSummary{
		TotalSamples:  len(results),
		PatternTotals: make(map[string]int),
	}

	var entropies stat.Float64Slice
	for _, res := range results {
		if res.Error != nil || res.Record == nil {
			s.Failed++
			s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", res.Path, res.Error))
			continue
		}
		s.Succeeded++
		for _, expr := range res.Record.SignatureMatches {
			s.PatternTotals[expr]++
		}
		s.ExternalDetections += len(res.Record.ExternalMatches)
		if e, ok := res.Record.Entropy[features.WholeFileKey]; ok {
			entropies = append(entropies, e)
		}
	}

	s.UniquePatterns = len(s.PatternTotals)
	for _, count := range s.PatternTotals {
		s.TotalMatches += count
	}
	if len(entropies) > 0 {
		s.MeanFileEntropy = stat.Mean(entropies)
	}
	return s
}

// TopPatterns returns up to n pattern expressions ordered by the number of
// samples that matched them, ties broken lexically for stable output.
func (s *BatchSummary) TopPatterns(n int) []string {
	exprs := make([]string, 0, len(s.PatternTotals))
	for expr := range s.PatternTotals {
		exprs = append(exprs, expr)
	}
	sort.Slice(exprs, func(i, j int) bool {
		if s.PatternTotals[exprs[i]] != s.PatternTotals[exprs[j]] {
			return s.PatternTotals[exprs[i]] > s.PatternTotals[exprs[j]]
		}
		return exprs[i] < exprs[j]
	})
	if n > 0 && len(exprs) > n {
		exprs = exprs[:n]
	}
	return exprs
}
