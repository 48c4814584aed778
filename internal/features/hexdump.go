package features

import "encoding/hex"

// hexDumpLimit bounds the dump carried on the record; reports only need
// the sample head for eyeballing, never the full image.
const hexDumpLimit = 1000

// HexDump returns the hex encoding of the sample head, truncated to
// hexDumpLimit characters.
func HexDump(data []byte) string {
	n := hexDumpLimit / 2
	if len(data) < n {
		n = len(data)
	}
	return hex.EncodeToString(data[:n])
}
