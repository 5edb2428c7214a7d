package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ChunkWriter accumulates whole rewritten INSERT statements into
// size-bounded files. A statement is never split across two files; a single
// statement larger than the budget forms an oversized chunk on its own.
// Files are numbered in strictly increasing sequence matching source order.
type ChunkWriter struct {
	dir      string
	prefix   string
	budget   int64
	compress string // "" or "zstd"
	header   bool

	seq       int
	size      int64
	file      *os.File
	buf       *bufio.Writer
	zw        *zstd.Encoder
	out       io.Writer
	paths     []string
	chunkRows int
	totalRows int
}

func NewChunkWriter(dir, prefix string, budget int64, compress string, header bool) *ChunkWriter {
	return &ChunkWriter{dir: dir, prefix: prefix, budget: budget, compress: compress, header: header}
}

// Write appends one statement, rotating to a new file once the accumulated
// statement bytes reach the budget after the statement is fully appended.
func (cw *ChunkWriter) Write(unit InsertUnit) error {
	if cw.file == nil {
		if err := cw.open(); err != nil {
			return err
		}
	}

	if _, err := cw.out.Write([]byte(unit.Text)); err != nil {
		return fmt.Errorf("chunk %d: %w", cw.seq, err)
	}
	if _, err := cw.out.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("chunk %d: %w", cw.seq, err)
	}
	cw.size += int64(len(unit.Text)) + 1
	cw.chunkRows++
	cw.totalRows++

	if cw.size >= cw.budget {
		return cw.closeCurrent()
	}
	return nil
}

// Close finishes the in-progress chunk, if any.
func (cw *ChunkWriter) Close() error {
	if cw.file == nil {
		return nil
	}
	return cw.closeCurrent()
}

// Paths returns the chunk files written so far, in sequence order.
func (cw *ChunkWriter) Paths() []string { return cw.paths }

// Stats returns the number of chunks and statements written.
func (cw *ChunkWriter) Stats() (chunks, statements int) {
	return len(cw.paths), cw.totalRows
}

func (cw *ChunkWriter) open() error {
	cw.seq++
	name := fmt.Sprintf("%s_part_%03d.sql", cw.prefix, cw.seq)
	if cw.compress == "zstd" {
		name += ".zst"
	}
	path := filepath.Join(cw.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chunk %s: %w", path, err)
	}
	cw.file = f
	cw.buf = bufio.NewWriterSize(f, 64*1024)
	cw.out = cw.buf
	if cw.compress == "zstd" {
		zw, err := zstd.NewWriter(cw.buf)
		if err != nil {
			f.Close()
			return fmt.Errorf("zstd writer for %s: %w", path, err)
		}
		cw.zw = zw
		cw.out = zw
	}
	cw.paths = append(cw.paths, path)
	cw.size = 0
	cw.chunkRows = 0

	if cw.header {
		// Per-chunk session setup so each file is independently executable
		// with triggers and FK checks disabled during bulk load.
		hdr := fmt.Sprintf("-- data chunk %d\nSET session_replication_role = 'replica';\nSET synchronous_commit = OFF;\n", cw.seq)
		if _, err := cw.out.Write([]byte(hdr)); err != nil {
			return fmt.Errorf("chunk %d header: %w", cw.seq, err)
		}
	}
	return nil
}

func (cw *ChunkWriter) closeCurrent() error {
	if cw.header {
		if _, err := cw.out.Write([]byte("SET session_replication_role = 'origin';\n")); err != nil {
			return fmt.Errorf("chunk %d footer: %w", cw.seq, err)
		}
	}
	if cw.zw != nil {
		if err := cw.zw.Close(); err != nil {
			return fmt.Errorf("chunk %d: close zstd: %w", cw.seq, err)
		}
		cw.zw = nil
	}
	if err := cw.buf.Flush(); err != nil {
		return fmt.Errorf("chunk %d: flush: %w", cw.seq, err)
	}
	err := cw.file.Close()
	cw.file = nil
	cw.buf = nil
	cw.out = nil
	if err != nil {
		return fmt.Errorf("chunk %d: close: %w", cw.seq, err)
	}
	return nil
}
