/*
 * @Date: 2025-04-15 10:12:40
 * @Editors: Mr wpl
 * @Description: 样本加载器,读取样本字节和文件系统元数据
 */
package sample

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"malsig/pkg/types"
)

// readChunkSize bounds how much is read between context checks so a
// deadline on a slow filesystem cancels mid-file instead of after it.
const readChunkSize = 64 * 1024

// Sample is an immutable handle over one sample's bytes and metadata.
// It is owned exclusively by the pipeline invocation that loaded it.
type Sample struct {
	Path string
	Data []byte
	Meta types.FileMetadata
}

/**
 * @Description: 加载样本,分块读取并记录元数据
 * @author: Mr wpl
 * @param ctx context.Context: 加载超时控制
 * @param path string: 样本路径
 * @param maxSize int64: 大小上限,0为不限制
 * @return *Sample: 样本
 * @return error: 错误
 */
func Load(ctx context.Context, path string, maxSize int64) (*Sample, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("file exceeds size limit (%d > %d bytes): %s", info.Size(), maxSize, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	defer f.Close()

	// One buffer for the whole sample; every downstream stage works on
	// read-only views into it.
	data := make([]byte, 0, info.Size())
	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: loading %s: %v", types.ErrIOTimeout, path, err)
		}
		n, err := f.Read(chunk)
		if n > 0 {
			data = append(data, chunk[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
	}

	created, accessed := fileTimes(info)
	return &Sample{
		Path: path,
		Data: data,
		Meta: types.FileMetadata{
			Size:             info.Size(),
			CreationTime:     created,
			ModificationTime: info.ModTime().Unix(),
			AccessTime:       accessed,
		},
	}, nil
}

/**
 * @Description: 猜测样本文件类型,先按扩展名再按内容
 * @author: Mr wpl
 * @return string: MIME类型,未知时返回"unknown"
 */
func (s *Sample) TypeGuess() string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(s.Path))); t != "" {
		return t
	}
	if len(s.Data) > 0 {
		// DetectContentType never fails; it falls back to octet-stream.
		return http.DetectContentType(s.Data)
	}
	return "unknown"
}
