/*
 * @Author: wpl
 * @Date: 2025-04-15 09:44:28
 * @LastEditors: Please set LastEditors
 * @LastEditTime: 2025-05-15 18:06:42
 * @Description: 通用类型定义
 */
package types

import (
	"errors"
	"time"
)

// 各阶段错误分类。除 ErrNotFound 外，所有错误都在本地恢复为
// 部分数据加日志，不向调用方传播。
var (
	ErrNotFound            = errors.New("sample not found")
	ErrMalformedContainer  = errors.New("malformed container header")
	ErrTruncatedSection    = errors.New("section claims out-of-range bytes")
	ErrInvalidPattern      = errors.New("invalid pattern expression")
	ErrExternalUnavailable = errors.New("external scan service unavailable")
	ErrIOTimeout           = errors.New("stage exceeded configured time budget")
)

// FileMetadata 文件系统元数据，时间戳为 Unix 秒
type FileMetadata struct {
	Size             int64 `json:"size"`
	CreationTime     int64 `json:"creation_time"`
	ModificationTime int64 `json:"modification_time"`
	AccessTime       int64 `json:"access_time"`
}

// SectionEntropy 输出文档中的节条目
type SectionEntropy struct {
	Name    string  `json:"name"`
	Entropy float64 `json:"entropy"`
}

// FeatureRecord is the terminal, immutable aggregate produced once per
// sample by the record builder. Field names are the serialization contract
// consumed by downstream aggregation; do not rename.
// 构造后不再修改。
type FeatureRecord struct {
	FileHash           string             `json:"file_hash"`
	FileType           string             `json:"file_type"`
	Metadata           FileMetadata       `json:"metadata"`
	Sections           []SectionEntropy   `json:"sections"`
	Imports            []string           `json:"imports"`
	Strings            []string           `json:"strings"` // bounded preview for display
	SignatureMatches   []string           `json:"signature_matches"`
	Entropy            map[string]float64 `json:"entropy"`
	IOCLogs            []string           `json:"ioc_logs"`
	ExternalMatches    []string           `json:"external_matches"`
	BinarySize         int64              `json:"binary_size"`
	ChecksumValidation string             `json:"checksum_validation"`
	HexDump            string             `json:"hex_dump"`

	// AllStrings keeps the full extracted table; Strings above is the
	// preview written to reports.
	AllStrings []string `json:"-"`
}

// SampleResult holds the overall outcome for a single analyzed sample.
// 保存单个样本的总体结果
type SampleResult struct {
	Path     string
	Record   *FeatureRecord // nil when Error is fatal for this sample
	Error    error
	Duration time.Duration
}

// DataPaths 定义数据文件路径
type DataPaths struct {
	Patterns string `yaml:"patterns" json:"patterns"`
	Config   string `yaml:"config" json:"config"`
}

// Performance 定义性能相关配置
type Performance struct {
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// Output 定义输出相关配置
type Output struct {
	Format string `yaml:"format" json:"format"` // console, json, csv
}

// Analysis 定义各提取阶段的阈值
type Analysis struct {
	MinStringLength int               `yaml:"min_string_length" json:"min_string_length"`
	StringPreview   int               `yaml:"string_preview" json:"string_preview"`
	MaxSampleSize   int64             `yaml:"max_sample_size" json:"max_sample_size"`
	MatchThreshold  int               `yaml:"match_threshold" json:"match_threshold"` // 0 = dynamic
	KnownChecksums  map[string]string `yaml:"known_checksums" json:"known_checksums"`
}

// Timeouts 定义各阶段时间预算（毫秒）
type Timeouts struct {
	LoadMS         int `yaml:"load_ms" json:"load_ms"`
	ExternalScanMS int `yaml:"external_scan_ms" json:"external_scan_ms"`
}

// External 外部扫描服务配置
type External struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ClamdSocket string `yaml:"clamd_socket" json:"clamd_socket"`
}

// PatternConfig 带权重的匹配模式
type PatternConfig struct {
	Expression string `yaml:"expression" json:"expression"`
	Weight     int    `yaml:"weight" json:"weight"`
}

// Config structure (基本示例,根据需要扩展)
type Config struct {
	DataPaths   DataPaths       `yaml:"data_paths" json:"data_paths"`
	Performance Performance     `yaml:"performance" json:"performance"`
	Output      Output          `yaml:"output" json:"output"`
	Analysis    Analysis        `yaml:"analysis" json:"analysis"`
	Timeouts    Timeouts        `yaml:"timeouts" json:"timeouts"`
	External    External        `yaml:"external" json:"external"`
	Patterns    []PatternConfig `yaml:"patterns" json:"patterns"`
	LogLevel    string          `yaml:"log_level" json:"log_level"`
}
