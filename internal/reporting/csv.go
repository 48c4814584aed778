package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"malsig/pkg/types"
)

// csvHeader is the flattened column layout consumed by spreadsheet-based
// triage. List-valued fields are semicolon-joined.
var csvHeader = []string{
	"path", "file_hash", "file_type", "size", "file_entropy",
	"sections", "imports", "strings", "signature_matches", "external_matches", "error",
}

type CsvReporter struct{}

func NewCsvReporter() *CsvReporter {
	return &CsvReporter{}
}

/**
 * @Description: 生成CSV报告,每个样本一行
 * @author: Mr wpl
 * @param results []*types.SampleResult: 分析结果
 * @param outputPath string: 输出路径,为空时写到标准输出
 * @return error: 错误
 */
func (r *CsvReporter) Generate(results []*types.SampleResult, outputPath string) error {
	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, res := range results {
		if res.Error != nil {
			if err := w.Write([]string{res.Path, "", "", "", "", "", "", "", "", "", res.Error.Error()}); err != nil {
				return err
			}
			continue
		}
		rec := res.Record
		sections := make([]string, 0, len(rec.Sections))
		for _, s := range rec.Sections {
			sections = append(sections, s.Name)
		}
		row := []string{
			res.Path,
			rec.FileHash,
			rec.FileType,
			fmt.Sprintf("%d", rec.BinarySize),
			fmt.Sprintf("%.4f", rec.Entropy["__file__"]),
			strings.Join(sections, ";"),
			fmt.Sprintf("%d", len(rec.Imports)),
			fmt.Sprintf("%d", len(rec.AllStrings)),
			strings.Join(rec.SignatureMatches, ";"),
			strings.Join(rec.ExternalMatches, ";"),
			"",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
