package features

/*
 * @Date: 2025-04-15 10:24:13
 * @Editors: Mr wpl
 * @Description: 节区与全文件香农熵计算
 */
import "math"

/**
 * @Description: 计算字节序列的香农熵
 * @author: Mr wpl
 * @param data []byte: 内容
 * @return float64: 熵值,单位bits/byte,范围[0,8],空输入为0
 */
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0.0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	var entropy float64
	length := float64(len(data))
	for _, count := range freq {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

/**
 * @Description: 计算每个节区的熵加全文件熵,用于识别加壳/加密内容
 * @author: Mr wpl
 * @param data []byte: 全文件内容
 * @param si *StructuralInfo: 结构解析结果,可为空
 * @return EntropyMap: 熵映射
 */
func AnalyzeEntropy(data []byte, si *StructuralInfo) EntropyMap {
	em := make(EntropyMap, len(si.Sections)+1)
	for _, sec := range si.Sections {
		em[sec.Name] = Entropy(sec.Raw)
	}
	em[WholeFileKey] = Entropy(data)
	return em
}
