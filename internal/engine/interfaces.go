package engine

import (
	"context"

	"malsig/pkg/types"
)

// ExternalScanner is the capability contract for the optional external
// scanning service. Implementations must tolerate being unreachable;
// the engine degrades a failed scan to an empty verdict list.
type ExternalScanner interface {
	Scan(ctx context.Context, data []byte) ([]string, error)
}

// Reporter defines the interface for generating output reports.
type Reporter interface {
	Generate(results []*types.SampleResult, outputPath string) error
}
