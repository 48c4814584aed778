/*
 * @Date: 2025-04-15 10:31:02
 * @Editors: Mr wpl
 * @Description: 可打印字符串提取
 */
package features

// DefaultMinStringLength is used when the configured minimum is absent.
const DefaultMinStringLength = 4

/**
 * @Description: 单遍扫描可打印ASCII串,逐条回调,yield返回false时停止
 * @author: Mr wpl
 * @param data []byte: 内容
 * @param minLen int: 最小长度
 * @param yield func(string) bool: 回调
 */
func ScanStrings(data []byte, minLen int, yield func(string) bool) {
	if minLen <= 0 {
		minLen = DefaultMinStringLength
	}

	start := -1
	flush := func(end int) bool {
		if start >= 0 && end-start >= minLen {
			if !yield(string(data[start:end])) {
				return false
			}
		}
		start = -1
		return true
	}

	for i, b := range data {
		if b >= 32 && b <= 126 { // printable ASCII
			if start < 0 {
				start = i
			}
			continue
		}
		if !flush(i) {
			return
		}
	}
	flush(len(data))
}

/**
 * @Description: 提取全部可打印字符串,保持出现顺序
 * @author: Mr wpl
 * @param data []byte: 内容
 * @param minLen int: 最小长度
 * @return []string: 字符串表
 */
func ExtractStrings(data []byte, minLen int) []string {
	var out []string
	ScanStrings(data, minLen, func(s string) bool {
		out = append(out, s)
		return true
	})
	return out
}
