package reporting

import (
	"encoding/json"
	"os"

	"malsig/pkg/types"
)

// SampleDocument is one entry in the JSON report: the serialized
// FeatureRecord plus the path and any fatal error for that sample.
type SampleDocument struct {
	Path   string               `json:"path"`
	Error  string               `json:"error,omitempty"`
	Record *types.FeatureRecord `json:"record,omitempty"`
}

// JsonReporter 实现 Reporter 接口
type JsonReporter struct{}

/**
 * @Description: 创建新的JSON报告
 * @author: Mr wpl
 * @return *JsonReporter: JSON报告
 */
func NewJsonReporter() *JsonReporter {
	return &JsonReporter{}
}

/**
 * @Description: 生成JSON报告,这是下游聚合消费的文档契约
 * @author: Mr wpl
 * @param results []*types.SampleResult: 分析结果
 * @param outputPath string: 输出路径,为空时写到标准输出
 * @return error: 错误
 */
func (r *JsonReporter) Generate(results []*types.SampleResult, outputPath string) error {
	docs := make([]SampleDocument, 0, len(results))
	for _, res := range results {
		doc := SampleDocument{Path: res.Path, Record: res.Record}
		if res.Error != nil {
			doc.Error = res.Error.Error()
		}
		docs = append(docs, doc)
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	// 使用map包装，和下游约定好格式
	finalResult := map[string]interface{}{
		"results": docs,
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(finalResult)
}
