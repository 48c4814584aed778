/*
 * @Date: 2025-04-18 11:20:45
 * @Editors: Mr wpl
 * @Description: ClamAV外部扫描适配器,clamd INSTREAM协议
 */
package clamav

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"malsig/pkg/types"
)

// streamChunkSize is the INSTREAM chunk size sent to clamd.
const streamChunkSize = 8 * 1024

// defaultScanTimeout caps a scan when no budget is configured. A wedged
// daemon must never stall the pipeline indefinitely.
const defaultScanTimeout = 30 * time.Second

// Scanner is the narrow contract over the external scanning capability.
// Implementations return verdict names for the given sample bytes.
type Scanner interface {
	Scan(ctx context.Context, data []byte) ([]string, error)
}

// NopScanner is used when external scanning is disabled. It always
// reports no verdicts.
type NopScanner struct{}

func (NopScanner) Scan(context.Context, []byte) ([]string, error) { return nil, nil }

// ClamdScanner talks to a clamd daemon over its local unix socket.
type ClamdScanner struct {
	socket  string
	timeout time.Duration
	log     zerolog.Logger
}

/**
 * @Description: 创建clamd扫描器
 * @author: Mr wpl
 * @param socket string: unix套接字路径
 * @param timeout time.Duration: 单次扫描时间预算
 * @param log zerolog.Logger: 日志
 * @return *ClamdScanner: 扫描器
 */
func NewClamdScanner(socket string, timeout time.Duration, log zerolog.Logger) *ClamdScanner {
	return &ClamdScanner{socket: socket, timeout: timeout, log: log}
}

/**
 * @Description: 通过zINSTREAM把样本流给clamd,解析FOUND行为判定名。
 *               服务不可达时返回ErrExternalUnavailable,由调用方降级
 * @author: Mr wpl
 * @param ctx context.Context: 超时控制
 * @param data []byte: 样本内容
 * @return []string: 判定名列表
 * @return error: 错误
 */
func (c *ClamdScanner) Scan(ctx context.Context, data []byte) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, effectiveTimeout(c.timeout))
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", types.ErrExternalUnavailable, c.socket, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExternalUnavailable, err)
	}

	// Body goes as length-prefixed chunks, terminated by a zero chunk.
	var sizeBuf [4]byte
	for off := 0; off < len(data); off += streamChunkSize {
		end := off + streamChunkSize
		if end > len(data) {
			end = len(data)
		}
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(end-off))
		if _, err := conn.Write(sizeBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExternalUnavailable, err)
		}
		if _, err := conn.Write(data[off:end]); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExternalUnavailable, err)
		}
	}
	binary.BigEndian.PutUint32(sizeBuf[:], 0)
	if _, err := conn.Write(sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExternalUnavailable, err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\x00')
	if err != nil && reply == "" {
		return nil, fmt.Errorf("%w: reading reply: %v", types.ErrExternalUnavailable, err)
	}

	return parseReply(reply), nil
}

// effectiveTimeout substitutes the default budget for unset or nonsense
// configured values.
func effectiveTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultScanTimeout
	}
	return d
}

// parseReply extracts verdict names from clamd responses of the form
// "stream: Win.Test.EICAR_HDB-1 FOUND". "OK" replies yield no verdicts.
func parseReply(reply string) []string {
	var verdicts []string
	for _, line := range strings.Split(strings.Trim(reply, "\x00"), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, " FOUND") {
			continue
		}
		line = strings.TrimSuffix(line, " FOUND")
		if i := strings.Index(line, ": "); i >= 0 {
			line = line[i+2:]
		}
		if line != "" {
			verdicts = append(verdicts, line)
		}
	}
	return verdicts
}
