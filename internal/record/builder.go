/*
 * @Date: 2025-04-18 15:44:09
 * @Editors: Mr wpl
 * @Description: 特征记录构建器,纯聚合
 */
package record

import (
	"fmt"

	"malsig/internal/features"
	"malsig/internal/patterns"
	"malsig/internal/sample"
	"malsig/pkg/types"
)

// Builder assembles component outputs into one immutable FeatureRecord.
// It depends on every extraction stage; no stage depends on it, so each
// stage stays independently testable.
type Builder struct {
	KnownChecksums map[string]string
	StringPreview  int
}

/**
 * @Description: 组装最终特征记录。构造一次,之后不再修改
 * @author: Mr wpl
 * @param s *sample.Sample: 样本
 * @param fs *features.FeatureSet: 提取的特征
 * @param pats []patterns.Pattern: 有效模式,注册顺序
 * @param res *patterns.Result: 匹配结果
 * @param external []string: 外部扫描判定
 * @return *types.FeatureRecord: 特征记录
 */
func (b *Builder) Build(s *sample.Sample, fs *features.FeatureSet, pats []patterns.Pattern, res *patterns.Result, external []string) *types.FeatureRecord {
	rec := &types.FeatureRecord{
		FileHash:           fs.Hash,
		FileType:           s.TypeGuess(),
		Metadata:           s.Meta,
		Sections:           make([]types.SectionEntropy, 0, len(fs.Structure.Sections)),
		Imports:            append([]string(nil), fs.Structure.Imports...),
		SignatureMatches:   []string{},
		Entropy:            make(map[string]float64, len(fs.Entropy)),
		IOCLogs:            []string{},
		ExternalMatches:    append([]string(nil), external...),
		BinarySize:         s.Meta.Size,
		ChecksumValidation: features.ValidateChecksum(fs.Hash, b.KnownChecksums),
		HexDump:            fs.HexDump,
		AllStrings:         fs.Strings,
	}
	if rec.ExternalMatches == nil {
		rec.ExternalMatches = []string{}
	}
	if rec.Imports == nil {
		rec.Imports = []string{}
	}

	// Sections keep parse order; entropy values come from the analyzer.
	for _, sec := range fs.Structure.Sections {
		rec.Sections = append(rec.Sections, types.SectionEntropy{
			Name:    sec.Name,
			Entropy: fs.Entropy[sec.Name],
		})
	}
	for name, value := range fs.Entropy {
		rec.Entropy[name] = value
	}

	rec.Strings = fs.Strings
	if b.StringPreview > 0 && len(fs.Strings) > b.StringPreview {
		rec.Strings = fs.Strings[:b.StringPreview]
	}
	if rec.Strings == nil {
		rec.Strings = []string{}
	}

	// Matched patterns in registration order keeps the record stable
	// across runs over identical input.
	if res != nil {
		for _, p := range pats {
			if count := res.Counts[p.Expression]; count > 0 {
				rec.SignatureMatches = append(rec.SignatureMatches, p.Expression)
				rec.IOCLogs = append(rec.IOCLogs, fmt.Sprintf(
					"Matched pattern: %s (count %d, weight %d)", p.Expression, count, p.Weight))
			}
		}
		for _, idx := range res.FlaggedIndices {
			if idx < len(fs.Strings) {
				rec.IOCLogs = append(rec.IOCLogs, fmt.Sprintf("Found string: %s", fs.Strings[idx]))
			}
		}
	}
	for _, note := range fs.Structure.Annotations {
		rec.IOCLogs = append(rec.IOCLogs, note)
	}

	return rec
}
