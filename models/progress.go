package models

import (
	"io"
	"log/slog"
	"time"
)

// ProgressReader logs streamed upload progress at most once per second.
type ProgressReader struct {
	Reader      io.Reader
	Key         string
	TotalBytes  int64
	ChunkCount  int
	LastLogTime time.Time
}

func NewProgressReader(r io.Reader, key string) *ProgressReader {
	return &ProgressReader{Reader: r, Key: key, LastLogTime: time.Now()}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.TotalBytes += int64(n)
	pr.ChunkCount++
	now := time.Now()
	if now.Sub(pr.LastLogTime) >= time.Second {
		slog.Info("upload progress", "key", pr.Key, "chunk_number", pr.ChunkCount, "bytes_read_in_chunk", n, "total_mb", pr.TotalBytes/1024/1024)
		pr.LastLogTime = now
	}
	return n, err
}
