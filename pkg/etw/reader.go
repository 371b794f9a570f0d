package etw

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Symbolized stacks can get long, so allow generous lines.
	maxLineSize = 64 * 1024 * 1024

	readQueueSize = 1024
)

// Reader streams symbolized samples from a trace dump: one JSON-encoded
// Sample per line, optionally gzip-compressed.
type Reader struct {
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

type numberedLine struct {
	number int
	data   []byte
}

// Read invokes fn for every sample in the dump at path, in file order.
// The first decode or callback error aborts the stream.
func (r *Reader) Read(ctx context.Context, path string, fn func(*Sample) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sample stream: %w", err)
	}
	defer file.Close()

	stream, err := transparentGunzip(file)
	if err != nil {
		return fmt.Errorf("failed to read sample stream %s: %w", path, err)
	}

	lines := make(chan numberedLine, readQueueSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)

		scanner := bufio.NewScanner(stream)
		scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

		number := 0
		for scanner.Scan() {
			number++
			if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
				continue
			}
			line := numberedLine{number: number, data: bytes.Clone(scanner.Bytes())}
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read sample stream %s: %w", path, err)
		}
		return nil
	})
	g.Go(func() error {
		for line := range lines {
			sample := &Sample{}
			if err := json.Unmarshal(line.data, sample); err != nil {
				return fmt.Errorf("failed to decode sample at %s:%d: %w", path, line.number, err)
			}
			if err := fn(sample); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	if err == nil {
		r.logger.Debug("Finished reading sample stream", zap.String("path", path))
	}
	return err
}

func transparentGunzip(file *os.File) (io.Reader, error) {
	buffered := bufio.NewReader(file)

	magic, err := buffered.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(buffered)
	}
	return buffered, nil
}
