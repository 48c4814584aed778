/*
 * @Date: 2025-05-13 16:54:58
 * @Editors: Mr wpl
 * @Description: 内置默认配置与模式库
 */
// pkg/embedded/files.go
package embedded

import "embed"

//go:embed config.yaml
//go:embed patterns.yaml
//go:embed config_schema.json
var EmbeddedFiles embed.FS

/**
 * @Description: 获取嵌入文件的内容
 * @author: Mr wpl
 * @param path string: 文件路径
 * @return []byte: 文件内容
 * @return error: 错误
 */
func GetFileContent(path string) ([]byte, error) {
	return EmbeddedFiles.ReadFile(path)
}
