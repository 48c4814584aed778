/*
 * @Author: wpl
 * @Date: 2025-04-15 10:37:04
 * @Description: 终端命令行输出
 */
package reporting

import (
	"fmt"
	"os"
	"sort"

	"malsig/internal/summary"
	"malsig/pkg/types"
)

type ConsoleReporter struct{}

/**
 * @Description: 创建新的终端命令行输出
 * @author: Mr wpl
 * @return *ConsoleReporter: 终端命令行输出
 */
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

/**
 * @Description: 生成终端报告
 * @author: Mr wpl
 * @param results []*types.SampleResult: 分析结果
 * @param outputPath string: 输出路径
 */
func (r *ConsoleReporter) Generate(results []*types.SampleResult, outputPath string) error {
	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "Warning: Console reporter does not support output path '%s'. Printing to stdout.\n", outputPath)
	}

	// Sort results by path for consistent output
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	fmt.Println("\n--- Analysis Report ---")
	for _, res := range results {
		if res.Error != nil {
			fmt.Printf("[ERROR] %s : %v\n", res.Path, res.Error)
			continue
		}
		rec := res.Record
		fmt.Printf("[OK] %s (Time: %s)\n", res.Path, res.Duration)
		fmt.Printf("  -> SHA-256:  %s\n", rec.FileHash)
		fmt.Printf("  -> Type:     %s, %d bytes\n", rec.FileType, rec.BinarySize)
		fmt.Printf("  -> Entropy:  %.4f bits/byte (whole file)\n", rec.Entropy["__file__"])
		if len(rec.Sections) > 0 {
			fmt.Printf("  -> Sections: %d, Imports: %d\n", len(rec.Sections), len(rec.Imports))
		}
		fmt.Printf("  -> Strings:  %d extracted\n", len(rec.AllStrings))
		if len(rec.SignatureMatches) > 0 {
			fmt.Printf("  -> Matched patterns:\n")
			for _, expr := range rec.SignatureMatches {
				fmt.Printf("     - %s\n", expr)
			}
		}
		if len(rec.ExternalMatches) > 0 {
			fmt.Printf("  -> External verdicts: %v\n", rec.ExternalMatches)
		}
		for _, ioc := range rec.IOCLogs {
			fmt.Printf("  -> IOC: %s\n", ioc)
		}
	}

	batch := summary.Build(results)
	fmt.Println("\n--- Summary ---")
	fmt.Printf("Total Samples Analyzed: %d\n", batch.TotalSamples)
	fmt.Printf("Succeeded:              %d\n", batch.Succeeded)
	fmt.Printf("Failed:                 %d\n", batch.Failed)
	fmt.Printf("Total Pattern Matches:  %d (%d unique)\n", batch.TotalMatches, batch.UniquePatterns)
	fmt.Printf("External Detections:    %d\n", batch.ExternalDetections)
	if batch.Succeeded > 0 {
		fmt.Printf("Mean File Entropy:      %.4f\n", batch.MeanFileEntropy)
	}
	if top := batch.TopPatterns(5); len(top) > 0 {
		fmt.Println("Top Patterns:")
		for _, expr := range top {
			fmt.Printf("  - %-40s : %d samples\n", expr, batch.PatternTotals[expr])
		}
	}
	if len(batch.Errors) > 0 {
		fmt.Println("Failures:")
		for _, e := range batch.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Println("--------------------")
	return nil
}
