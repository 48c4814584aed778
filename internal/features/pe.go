/*
 * @Date: 2025-04-16 09:05:11
 * @Editors: Mr wpl
 * @Description: PE容器结构解析,对畸形头部做降级处理
 */
package features

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Hard caps on header-declared counts. Adversarial samples routinely
// declare absurd table sizes to stall or crash parsers.
const (
	maxSections          = 96
	maxImportDescriptors = 64
	maxThunksPerModule   = 1024
	maxImportNameLen     = 256
)

const (
	dosHeaderSize    = 64
	coffHeaderSize   = 20
	sectionEntrySize = 40
	importDescSize   = 20

	peMagic32     = 0x10b
	peMagic64     = 0x20b
	ordinalFlag32 = 0x80000000
	ordinalFlag64 = 0x8000000000000000
)

// sectionHeader keeps the raw header fields needed for RVA translation,
// before any clamping is applied to the exposed Section.
type sectionHeader struct {
	name        string
	virtualSize uint32
	virtualAddr uint32
	rawSize     uint32
	rawOffset   uint32
}

/**
 * @Description: 解析PE结构。非PE或头部损坏时返回空StructuralInfo而不是错误,
 *               越界的节与导入项单独降级,解析永远不中止
 * @author: Mr wpl
 * @param data []byte: 样本内容
 * @param log zerolog.Logger: 本次调用的日志
 * @return StructuralInfo: 结构信息
 */
func ParsePE(data []byte, log zerolog.Logger) StructuralInfo {
	var si StructuralInfo

	headers, ok := parseHeaders(data, log)
	if !ok {
		return si // empty, not an error: common for non-container samples
	}

	for _, hdr := range headers.sections {
		sec := Section{
			Name:           hdr.name,
			VirtualAddress: hdr.virtualAddr,
			Offset:         hdr.rawOffset,
			Size:           hdr.rawSize,
		}
		// Never trust header-declared lengths: clamp both offset and
		// size to the bytes actually present.
		span, truncated, ok := sectionSpan(hdr.rawOffset, hdr.rawSize, uint64(len(data)))
		switch {
		case !ok:
			sec.Offset = 0
			sec.Size = 0
			si.Annotations = append(si.Annotations, fmt.Sprintf(
				"Truncated section %s: offset %d beyond file end (%d bytes)",
				hdr.name, hdr.rawOffset, len(data)))
		case truncated:
			sec.Size = span
			sec.Raw = data[int64(hdr.rawOffset) : int64(hdr.rawOffset)+int64(span)]
			si.Annotations = append(si.Annotations, fmt.Sprintf(
				"Truncated section %s: declared %d bytes at offset %d, clamped to %d",
				hdr.name, hdr.rawSize, hdr.rawOffset, sec.Size))
		default:
			sec.Raw = data[int64(hdr.rawOffset) : int64(hdr.rawOffset)+int64(span)]
		}
		si.Sections = append(si.Sections, sec)
	}

	if headers.importRVA != 0 {
		si.Imports = parseImports(data, headers, &si, log)
	}
	return si
}

// sectionSpan clamps a header-declared byte range to the bytes actually
// present. All arithmetic stays in uint64: offset+size can wrap 32 bits,
// and on files past 4 GiB a uint32 view of the length wraps too. ok is
// false when the offset itself lies beyond the file.
func sectionSpan(off, size uint32, fileLen uint64) (span uint32, truncated, ok bool) {
	o := uint64(off)
	if o >= fileLen {
		return 0, false, false
	}
	if o+uint64(size) > fileLen {
		// fileLen-o < size here, so the clamped span fits 32 bits.
		return uint32(fileLen - o), true, true
	}
	return size, false, true
}

type peHeaders struct {
	sections  []sectionHeader
	importRVA uint32
	is64      bool
}

func parseHeaders(data []byte, log zerolog.Logger) (peHeaders, bool) {
	var h peHeaders

	if len(data) < dosHeaderSize || data[0] != 'M' || data[1] != 'Z' {
		return h, false
	}
	peOff := int64(binary.LittleEndian.Uint32(data[0x3c:]))
	if peOff < 0 || peOff+4+coffHeaderSize > int64(len(data)) {
		log.Debug().Msg("malformed container: e_lfanew out of range")
		return h, false
	}
	if string(data[peOff:peOff+4]) != "PE\x00\x00" {
		return h, false
	}

	coff := peOff + 4
	numSections := int(binary.LittleEndian.Uint16(data[coff+2:]))
	optSize := int64(binary.LittleEndian.Uint16(data[coff+16:]))
	if numSections > maxSections {
		log.Warn().Int("declared", numSections).Msg("section count capped")
		numSections = maxSections
	}

	optOff := coff + coffHeaderSize
	if optSize >= 2 && optOff+2 <= int64(len(data)) {
		magic := binary.LittleEndian.Uint16(data[optOff:])
		h.is64 = magic == peMagic64
		// Import table is data directory entry 1.
		dirOff := optOff + 96 + 8
		if h.is64 {
			dirOff = optOff + 112 + 8
		}
		if dirOff+8 <= optOff+optSize && dirOff+8 <= int64(len(data)) {
			h.importRVA = binary.LittleEndian.Uint32(data[dirOff:])
		}
	}

	tableOff := optOff + optSize
	for i := 0; i < numSections; i++ {
		entry := tableOff + int64(i)*sectionEntrySize
		if entry+sectionEntrySize > int64(len(data)) {
			log.Debug().Int("index", i).Msg("section table truncated")
			break
		}
		raw := data[entry : entry+sectionEntrySize]
		name := strings.TrimRight(string(raw[:8]), "\x00")
		h.sections = append(h.sections, sectionHeader{
			name:        name,
			virtualSize: binary.LittleEndian.Uint32(raw[8:]),
			virtualAddr: binary.LittleEndian.Uint32(raw[12:]),
			rawSize:     binary.LittleEndian.Uint32(raw[16:]),
			rawOffset:   binary.LittleEndian.Uint32(raw[20:]),
		})
	}
	return h, true
}

// rvaToOffset translates a virtual address into a file offset through the
// section table. Returns false when the RVA maps outside the buffer.
func rvaToOffset(data []byte, sections []sectionHeader, rva uint32) (int64, bool) {
	for _, s := range sections {
		span := s.virtualSize
		if s.rawSize > span {
			span = s.rawSize
		}
		if rva >= s.virtualAddr && uint64(rva) < uint64(s.virtualAddr)+uint64(span) {
			off := int64(s.rawOffset) + int64(rva-s.virtualAddr)
			if off >= 0 && off < int64(len(data)) {
				return off, true
			}
			return 0, false
		}
	}
	// Headers live before the first section and map 1:1.
	if int64(rva) < int64(len(data)) {
		return int64(rva), true
	}
	return 0, false
}

// parseImports walks the import directory. Unresolved or truncated entries
// are skipped individually; partial results beat total failure here.
func parseImports(data []byte, h peHeaders, si *StructuralInfo, log zerolog.Logger) []string {
	var imports []string

	dirOff, ok := rvaToOffset(data, h.sections, h.importRVA)
	if !ok {
		si.Annotations = append(si.Annotations, fmt.Sprintf(
			"Import directory at RVA 0x%x maps outside the file", h.importRVA))
		return nil
	}

	for i := 0; i < maxImportDescriptors; i++ {
		desc := dirOff + int64(i)*importDescSize
		if desc+importDescSize > int64(len(data)) {
			log.Debug().Msg("import directory truncated")
			break
		}
		origThunk := binary.LittleEndian.Uint32(data[desc:])
		nameRVA := binary.LittleEndian.Uint32(data[desc+12:])
		firstThunk := binary.LittleEndian.Uint32(data[desc+16:])
		if origThunk == 0 && nameRVA == 0 && firstThunk == 0 {
			break // null terminator descriptor
		}

		dllOff, ok := rvaToOffset(data, h.sections, nameRVA)
		if !ok {
			log.Debug().Uint32("rva", nameRVA).Msg("skipping import with unresolvable module name")
			continue
		}
		dll := readCString(data, dllOff)
		if dll == "" {
			continue
		}
		imports = append(imports, dll)

		thunkRVA := origThunk
		if thunkRVA == 0 {
			thunkRVA = firstThunk
		}
		imports = append(imports, parseThunks(data, h, dll, thunkRVA, log)...)
	}
	return imports
}

func parseThunks(data []byte, h peHeaders, dll string, thunkRVA uint32, log zerolog.Logger) []string {
	off, ok := rvaToOffset(data, h.sections, thunkRVA)
	if !ok {
		return nil
	}

	entrySize := int64(4)
	if h.is64 {
		entrySize = 8
	}

	var names []string
	for i := 0; i < maxThunksPerModule; i++ {
		pos := off + int64(i)*entrySize
		if pos+entrySize > int64(len(data)) {
			break
		}
		var val uint64
		if h.is64 {
			val = binary.LittleEndian.Uint64(data[pos:])
		} else {
			val = uint64(binary.LittleEndian.Uint32(data[pos:]))
		}
		if val == 0 {
			break
		}
		if (h.is64 && val&ordinalFlag64 != 0) || (!h.is64 && val&ordinalFlag32 != 0) {
			names = append(names, fmt.Sprintf("%s!Ordinal_%d", dll, val&0xffff))
			continue
		}
		// Hint/name entry: two-byte hint then the symbol name.
		nameOff, ok := rvaToOffset(data, h.sections, uint32(val))
		if !ok {
			continue
		}
		if name := readCString(data, nameOff+2); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func readCString(data []byte, off int64) string {
	if off < 0 || off >= int64(len(data)) {
		return ""
	}
	end := off
	limit := off + maxImportNameLen
	if limit > int64(len(data)) {
		limit = int64(len(data))
	}
	for end < limit && data[end] != 0 {
		end++
	}
	return string(data[off:end])
}
