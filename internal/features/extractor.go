/*
 * @Date: 2025-04-15 10:26:28
 * @Editors: Mr wpl
 * @Description: 特征提取器,协调各静态提取阶段
 */
package features

import (
	"sync"

	"github.com/rs/zerolog"

	"malsig/internal/sample"
)

// ExtractAll runs the static extraction stages for one sample.
//
// Hashing, structural parsing and string extraction operate on independent
// read-only views of the same buffer and run as concurrent tasks; each
// goroutine writes a disjoint set of FeatureSet fields, so no locks are
// needed. Entropy is computed after the structural parse completes (the
// first join point); pattern matching joins on strings in the engine.
func ExtractAll(s *sample.Sample, minStrLen int, log zerolog.Logger) *FeatureSet {
	fs := &FeatureSet{}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		fs.Hash = HashSHA256(s.Data)
		fs.HexDump = HexDump(s.Data)
		log.Debug().Str("hash", fs.Hash).Msg("digest computed")
	}()

	go func() {
		defer wg.Done()
		fs.Structure = ParsePE(s.Data, log)
		fs.Entropy = AnalyzeEntropy(s.Data, &fs.Structure)
		if fs.Structure.Empty() {
			log.Debug().Msg("no recognizable container structure")
		} else {
			log.Debug().
				Int("sections", len(fs.Structure.Sections)).
				Int("imports", len(fs.Structure.Imports)).
				Msg("container parsed")
		}
	}()

	go func() {
		defer wg.Done()
		fs.Strings = ExtractStrings(s.Data, minStrLen)
		log.Debug().Int("strings", len(fs.Strings)).Msg("string extraction finished")
	}()

	wg.Wait()
	return fs
}
