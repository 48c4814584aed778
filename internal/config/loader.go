package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"malsig/pkg/embedded"
	"malsig/pkg/types"
)

/**
 * @Description: 加载配置。先取嵌入默认值,再叠加磁盘配置(yaml或json),
 *               最后按内置schema校验
 * @author: Mr wpl
 * @param configPath string: 配置文件路径,可为空
 * @param log zerolog.Logger: 日志
 * @return *types.Config: 配置
 * @return error: 错误
 */
func LoadConfig(configPath string, log zerolog.Logger) (*types.Config, error) {
	defaults, err := embedded.GetFileContent("config.yaml")
	if err != nil {
		return nil, fmt.Errorf("嵌入默认配置缺失: %w", err)
	}
	cfg := &types.Config{}
	if err := yaml.Unmarshal(defaults, cfg); err != nil {
		return nil, fmt.Errorf("解析默认配置失败: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			log.Warn().Str("path", configPath).Msg("配置文件不存在，使用默认配置")
		case err != nil:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		default:
			if err := unmarshalByExt(configPath, data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

// unmarshalByExt accepts YAML and JSON config files, matching the formats
// the front ends historically supplied.
func unmarshalByExt(path string, data []byte, cfg *types.Config) error {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return json.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

/**
 * @Description: 按嵌入的JSON Schema校验配置
 * @author: Mr wpl
 * @param cfg *types.Config: 配置
 * @return error: 错误
 */
func validateConfig(cfg *types.Config) error {
	schemaData, err := embedded.GetFileContent("config_schema.json")
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config_schema.json", bytes.NewReader(schemaData)); err != nil {
		return err
	}
	schema, err := compiler.Compile("config_schema.json")
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees plain values.
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return err
	}
	return schema.Validate(instance)
}

// patternFile is the on-disk/embedded pattern list layout.
type patternFile struct {
	Patterns []types.PatternConfig `yaml:"patterns"`
}

/**
 * @Description: 解析模式库。优先用配置内联的patterns,其次磁盘模式文件,
 *               最后回退到嵌入的默认模式库
 * @author: Mr wpl
 * @param cfg *types.Config: 配置
 * @param log zerolog.Logger: 日志
 * @return []types.PatternConfig: 模式列表
 * @return error: 错误
 */
func LoadPatterns(cfg *types.Config, log zerolog.Logger) ([]types.PatternConfig, error) {
	if len(cfg.Patterns) > 0 {
		return cfg.Patterns, nil
	}

	if cfg.DataPaths.Patterns != "" {
		data, err := os.ReadFile(cfg.DataPaths.Patterns)
		if err == nil {
			var pf patternFile
			if err := yaml.Unmarshal(data, &pf); err != nil {
				return nil, fmt.Errorf("解析模式文件失败 %s: %w", cfg.DataPaths.Patterns, err)
			}
			return pf.Patterns, nil
		}
		log.Debug().Str("path", cfg.DataPaths.Patterns).
			Msg("未找到磁盘模式文件，使用嵌入模式库")
	}

	data, err := embedded.GetFileContent("patterns.yaml")
	if err != nil {
		return nil, fmt.Errorf("嵌入模式库缺失: %w", err)
	}
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("解析嵌入模式库失败: %w", err)
	}
	return pf.Patterns, nil
}
