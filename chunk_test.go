package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeUnits(t *testing.T, cw *ChunkWriter, texts ...string) {
	t.Helper()
	for i, s := range texts {
		if err := cw.Write(InsertUnit{Index: i, Text: s}); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
}

func chunkStatements(t *testing.T, path string) []string {
	t.Helper()
	data, err := readChunk(path)
	if err != nil {
		t.Fatalf("readChunk(%s): %v", path, err)
	}
	var inserts []string
	for _, s := range splitStatements(string(data)) {
		if isInsert(s) {
			inserts = append(inserts, s)
		}
	}
	return inserts
}

func TestChunkWriterRotatesOnBudget(t *testing.T) {
	dir := t.TempDir()
	cw := NewChunkWriter(dir, "pg_inserts", 40, "", false)
	stmts := []string{
		"INSERT INTO t VALUES (1);",
		"INSERT INTO t VALUES (2);", // crosses the budget, rotates after append
		"INSERT INTO t VALUES (3);",
	}
	writeUnits(t, cw, stmts...)

	paths := cw.Paths()
	if len(paths) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "pg_inserts_part_001.sql" || filepath.Base(paths[1]) != "pg_inserts_part_002.sql" {
		t.Errorf("chunk names = %v", paths)
	}

	first := chunkStatements(t, paths[0])
	if len(first) != 2 {
		t.Errorf("first chunk has %d statements, want 2 (statement appended before rotation)", len(first))
	}
}

// Concatenating all chunks in sequence order must reproduce the extractor
// output exactly: no duplication, omission, or truncation.
func TestChunkIntegrity(t *testing.T) {
	dir := t.TempDir()
	cw := NewChunkWriter(dir, "pg_inserts", 30, "", true)
	stmts := []string{
		"INSERT INTO a VALUES (1, 'x');",
		"INSERT INTO a VALUES (2, 'y');",
		"INSERT INTO b VALUES (3, 'semi;colon');",
		"INSERT INTO b VALUES (4, 'z');",
	}
	writeUnits(t, cw, stmts...)

	var got []string
	for _, p := range cw.Paths() {
		got = append(got, chunkStatements(t, p)...)
	}
	if len(got) != len(stmts) {
		t.Fatalf("got %d statements across chunks, want %d: %q", len(got), len(stmts), got)
	}
	for i := range stmts {
		if got[i]+";" != stmts[i] {
			t.Errorf("statement %d = %q, want %q", i, got[i], stmts[i])
		}
	}
}

func TestChunkOversizedStatement(t *testing.T) {
	dir := t.TempDir()
	cw := NewChunkWriter(dir, "pg_inserts", 10, "", false)
	big := "INSERT INTO t VALUES ('" + strings.Repeat("x", 100) + "');"
	writeUnits(t, cw, big, "INSERT INTO t VALUES (2);")

	paths := cw.Paths()
	if len(paths) != 2 {
		t.Fatalf("got %d chunks, want 2", len(paths))
	}
	first := chunkStatements(t, paths[0])
	if len(first) != 1 || !strings.Contains(first[0], strings.Repeat("x", 100)) {
		t.Errorf("oversized statement must form a complete single-statement chunk: %q", first)
	}
}

func TestChunkHeaderFooter(t *testing.T) {
	dir := t.TempDir()
	cw := NewChunkWriter(dir, "pg_inserts", 1<<20, "", true)
	writeUnits(t, cw, "INSERT INTO t VALUES (1);")

	data, err := os.ReadFile(cw.Paths()[0])
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "SET session_replication_role = 'replica';") {
		t.Errorf("missing header:\n%s", text)
	}
	if !strings.HasSuffix(strings.TrimSpace(text), "SET session_replication_role = 'origin';") {
		t.Errorf("missing footer:\n%s", text)
	}
}

func TestChunkNoFilesWithoutStatements(t *testing.T) {
	cw := NewChunkWriter(t.TempDir(), "pg_inserts", 100, "", true)
	if err := cw.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if len(cw.Paths()) != 0 {
		t.Errorf("no statements should produce no chunks: %v", cw.Paths())
	}
}

func TestChunkZstdRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cw := NewChunkWriter(dir, "pg_inserts", 1<<20, "zstd", false)
	writeUnits(t, cw, "INSERT INTO t VALUES (1, 'compressed');")

	paths := cw.Paths()
	if len(paths) != 1 || !strings.HasSuffix(paths[0], ".sql.zst") {
		t.Fatalf("paths = %v, want one .sql.zst file", paths)
	}
	stmts := chunkStatements(t, paths[0])
	if len(stmts) != 1 || !strings.Contains(stmts[0], "'compressed'") {
		t.Errorf("decompressed statements = %q", stmts)
	}
}
