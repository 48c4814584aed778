package features

/*
 * @Author: wpl
 * @Date: 2025-04-15 10:24:13
 * @LastEditors: Please set LastEditors
 * @LastEditTime: 2025-05-07 15:28:09
 * @Description: 待提取特征列表信息
 */

// WholeFileKey is the synthetic EntropyMap key for the entire sample.
const WholeFileKey = "__file__"

// Section is a named contiguous byte range within a container image.
// Raw is a borrowed view into the owning sample buffer, never a copy.
type Section struct {
	Name           string
	VirtualAddress uint32
	Offset         uint32 // file offset, clamped to the sample buffer
	Size           uint32 // raw size, clamped to the sample buffer
	Raw            []byte
}

// StructuralInfo is the parsed container view. A sample that is not a
// recognized container yields the zero value, not an error; the pipeline
// continues on non-container and corrupted input.
type StructuralInfo struct {
	Sections []Section
	Imports  []string
	// Annotations records recovered parse defects (clamped sections,
	// skipped import entries) for the IOC log.
	Annotations []string
}

// Empty reports whether the sample carried no recognizable container.
func (si *StructuralInfo) Empty() bool {
	return len(si.Sections) == 0 && len(si.Imports) == 0
}

// EntropyMap maps section name to Shannon entropy in bits/byte [0,8],
// plus WholeFileKey for the full sample.
type EntropyMap map[string]float64

// FeatureSet holds all extracted features for one sample.
type FeatureSet struct {
	Hash      string
	Structure StructuralInfo
	Entropy   EntropyMap
	Strings   []string // insertion order = order of appearance in the byte stream
	HexDump   string
}
