/*
 * @Date: 2025-04-15 10:29:24
 * @Editors: Mr wpl
 * @Description: 样本内容哈希与已知校验和比对
 */
package features

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashBlockSize keeps digest memory at O(block) regardless of sample size.
const hashBlockSize = 8 * 1024

// Checksum verdict strings, part of the record contract.
const (
	ChecksumKnownMalware = "Malware known to exist."
	ChecksumNoMatch      = "No known malware match."
)

/**
 * @Description: 流式计算SHA-256摘要,按8KiB块喂给哈希器
 * @author: Mr wpl
 * @param data []byte: 样本内容
 * @return string: 小写十六进制摘要
 */
func HashSHA256(data []byte) string {
	hasher := sha256.New()
	for off := 0; off < len(data); off += hashBlockSize {
		end := off + hashBlockSize
		if end > len(data) {
			end = len(data)
		}
		// sha256.Write never returns an error.
		hasher.Write(data[off:end])
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

/**
 * @Description: 将摘要与已知恶意校验和库比对
 * @author: Mr wpl
 * @param digest string: 样本摘要
 * @param known map[string]string: 名称到摘要的已知库
 * @return string: 比对结论
 */
func ValidateChecksum(digest string, known map[string]string) string {
	digest = strings.ToLower(digest)
	for _, h := range known {
		if strings.ToLower(h) == digest {
			return ChecksumKnownMalware
		}
	}
	return ChecksumNoMatch
}
