package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"malsig/internal/clamav"
	"malsig/internal/config"
	"malsig/internal/features"
	"malsig/internal/patterns"
	"malsig/internal/record"
	"malsig/internal/reporting"
	"malsig/internal/sample"
	"malsig/pkg/types"
)

// Engine 协调特征提取过程
type Engine struct {
	config     *types.Config
	recognizer *patterns.Recognizer
	scanner    ExternalScanner
	builder    *record.Builder
	log        zerolog.Logger
}

// Task 定义需要分析的内容
type Task struct {
	Paths        []string // 需要分析的文件或目录
	Exclusions   []string // 需要排除的文件或目录
	ReportPath   string   // 保存报告的路径 (来自 -output)
	OutputFormat string   // Format is determined by ReportPath or config
}

/**
 * @Description: 初始化分析引擎
 * @author: Mr wpl
 * @param cfg *types.Config: 配置
 * @param log zerolog.Logger: 根日志
 * @return *Engine: 引擎
 */
func NewEngine(cfg *types.Config, log zerolog.Logger) (*Engine, error) {
	patternConfigs, err := config.LoadPatterns(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("loading pattern set: %w", err)
	}

	recognizer := patterns.NewRecognizer(log)
	registered := make([]patterns.Pattern, 0, len(patternConfigs))
	for _, pc := range patternConfigs {
		registered = append(registered, patterns.Pattern{Expression: pc.Expression, Weight: pc.Weight})
	}
	recognizer.AddPatterns(registered)
	if rejected := recognizer.Rejected(); len(rejected) > 0 {
		log.Warn().Strs("expressions", rejected).Msg("invalid patterns excluded from matching")
	}
	if len(recognizer.Patterns()) == 0 {
		log.Error().Msg("no valid patterns registered; signature matching will be inactive")
	}

	var scanner ExternalScanner = clamav.NopScanner{}
	if cfg.External.Enabled {
		timeout := time.Duration(cfg.Timeouts.ExternalScanMS) * time.Millisecond
		scanner = clamav.NewClamdScanner(cfg.External.ClamdSocket, timeout, log)
	}

	return &Engine{
		config:     cfg,
		recognizer: recognizer,
		scanner:    scanner,
		builder: &record.Builder{
			KnownChecksums: cfg.Analysis.KnownChecksums,
			StringPreview:  cfg.Analysis.StringPreview,
		},
		log: log,
	}, nil
}

/**
 * @Description: 根据任务定义执行批量分析
 * @author: Mr wpl
 * @param task *Task: 任务
 * @return error: 错误
 */
func (e *Engine) Run(task *Task) error {
	filesToAnalyze, err := findFiles(task.Paths, task.Exclusions, e.log)
	if err != nil {
		return fmt.Errorf("error finding files to analyze: %w", err)
	}
	if len(filesToAnalyze) == 0 {
		e.log.Info().Msg("no files found to analyze")
		return e.generateReport([]*types.SampleResult{}, task)
	}

	concurrency := e.config.Performance.Concurrency
	if concurrency <= 0 {
		concurrency = 4 // Default if invalid
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	startTime := time.Now()
	resultChan := make(chan *types.SampleResult, len(filesToAnalyze))
	var wg sync.WaitGroup

	for _, filePath := range filesToAnalyze {
		fp := filePath
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			resultChan <- e.analyzeSample(fp)
		}); err != nil {
			// Pool rejection counts as a per-sample failure, never a
			// batch abort.
			wg.Done()
			resultChan <- &types.SampleResult{Path: fp, Error: err}
		}
	}

	wg.Wait()
	close(resultChan)

	results := make([]*types.SampleResult, 0, len(filesToAnalyze))
	for res := range resultChan {
		results = append(results, res)
	}

	e.log.Info().
		Int("samples", len(results)).
		Dur("elapsed", time.Since(startTime)).
		Msg("analysis finished")

	return e.generateReport(results, task)
}

/**
 * @Description: 处理单个样本:加载、派生提取、模式匹配、外部扫描、组装记录。
 *               除加载失败外所有阶段错误就地恢复为部分数据
 * @author: Mr wpl
 * @param path string: 样本路径
 * @return *types.SampleResult: 结果
 */
func (e *Engine) analyzeSample(path string) *types.SampleResult {
	start := time.Now()
	log := e.log.With().Str("sample", path).Logger()

	loadCtx := context.Background()
	if e.config.Timeouts.LoadMS > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, time.Duration(e.config.Timeouts.LoadMS)*time.Millisecond)
		defer cancel()
	}

	s, err := sample.Load(loadCtx, path, e.config.Analysis.MaxSampleSize)
	if err != nil {
		log.Error().Err(err).Msg("sample load failed")
		return &types.SampleResult{Path: path, Error: err, Duration: time.Since(start)}
	}

	// External scanning is independent of the extraction stages; it is
	// awaited by the builder but never gates them.
	externalChan := make(chan []string, 1)
	go func() {
		verdicts, err := e.scanner.Scan(context.Background(), s.Data)
		if err != nil {
			log.Warn().Err(err).Msg("external scan degraded to empty verdicts")
			verdicts = nil
		}
		externalChan <- verdicts
	}()

	fs := features.ExtractAll(s, e.config.Analysis.MinStringLength, log)
	matchRes := e.recognizer.Recognize(fs.Strings)

	// The filtered view suppresses low-frequency noise for triage logs;
	// the record itself keeps the complete counts.
	filtered := patterns.FilterLowFrequency(matchRes.Counts, e.config.Analysis.MatchThreshold)
	log.Debug().
		Int("matched", len(matchRes.Counts)).
		Int("above_threshold", len(filtered)).
		Msg("pattern matching finished")

	external := <-externalChan
	rec := e.builder.Build(s, fs, e.recognizer.Patterns(), matchRes, external)

	result := &types.SampleResult{
		Path:     path,
		Record:   rec,
		Duration: time.Since(start),
	}
	log.Info().
		Str("hash", rec.FileHash).
		Int("matches", len(rec.SignatureMatches)).
		Dur("elapsed", result.Duration).
		Msg("analysis complete")
	return result
}

/**
 * @Description: 处理报告生成逻辑,按输出路径扩展名或配置选择生成器
 * @author: Mr wpl
 * @param results []*types.SampleResult: 分析结果
 * @param task *Task: 任务
 * @return error: 错误
 */
func (e *Engine) generateReport(results []*types.SampleResult, task *Task) error {
	var reporter Reporter = reporting.NewConsoleReporter() // Default to console
	outputFormat := strings.ToLower(e.config.Output.Format)
	outputPath := ""

	if task.ReportPath != "" {
		outputPath = task.ReportPath
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".json":
			outputFormat = "json"
		case ".csv":
			outputFormat = "csv"
		default:
			e.log.Warn().Str("path", outputPath).
				Msgf("unsupported report extension, using '%s' format", outputFormat)
		}
	}

	switch outputFormat {
	case "json":
		reporter = reporting.NewJsonReporter()
	case "csv":
		reporter = reporting.NewCsvReporter()
	default:
		reporter = reporting.NewConsoleReporter()
		outputPath = ""
	}

	e.log.Info().Str("format", outputFormat).Msg("generating report")
	if err := reporter.Generate(results, outputPath); err != nil {
		return fmt.Errorf("failed to generate %s report: %w", outputFormat, err)
	}
	if outputPath != "" {
		fmt.Printf("Report generated: %s\n", outputPath)
	}
	return nil
}

/**
 * @Description: 查找所有符合条件的样本文件
 * @author: Mr wpl
 * @param paths []string: 需要分析的文件或目录
 * @param exclusions []string: 需要排除的文件或目录
 * @return []string: 样本文件列表
 */
func findFiles(paths []string, exclusions []string, log zerolog.Logger) ([]string, error) {
	var files []string
	exclusionPatterns := make(map[string]bool)
	for _, ex := range exclusions {
		if absEx, err := filepath.Abs(ex); err == nil {
			exclusionPatterns[filepath.Clean(absEx)] = true
		} else {
			exclusionPatterns[filepath.Clean(ex)] = true
		}
	}

	processedPaths := make(map[string]bool)

	for _, p := range paths {
		absP, err := filepath.Abs(p)
		if err != nil {
			log.Warn().Str("path", p).Err(err).Msg("skipping unresolvable target")
			continue
		}
		cleanPath := filepath.Clean(absP)
		if processedPaths[cleanPath] || exclusionPatterns[cleanPath] {
			processedPaths[cleanPath] = true
			continue
		}

		info, err := os.Stat(cleanPath)
		if err != nil {
			log.Warn().Str("path", p).Err(err).Msg("skipping unreadable target")
			processedPaths[cleanPath] = true
			continue
		}

		if !info.IsDir() {
			files = append(files, cleanPath)
			processedPaths[cleanPath] = true
			continue
		}

		walkErr := filepath.Walk(cleanPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				log.Warn().Str("path", path).Err(err).Msg("error accessing path during walk")
				return nil
			}
			absWalk, err := filepath.Abs(path)
			if err != nil {
				return nil
			}
			cleanWalk := filepath.Clean(absWalk)
			if exclusionPatterns[cleanWalk] {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if info.Mode().IsRegular() && !processedPaths[cleanWalk] {
				files = append(files, cleanWalk)
				processedPaths[cleanWalk] = true
			}
			return nil
		})
		if walkErr != nil {
			log.Error().Str("path", cleanPath).Err(walkErr).Msg("error walking directory")
		}
		processedPaths[cleanPath] = true
	}

	log.Info().Int("count", len(files)).Msg("samples queued for analysis")
	return files, nil
}
