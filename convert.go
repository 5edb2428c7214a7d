package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// runConvert drives the single streaming pass over the dump: DDL statements
// feed the parser, INSERT statements are rewritten and handed to the chunk
// splitter. The DDL file is emitted once the model is complete.
func runConvert(cfg *Config) error {
	start := time.Now()

	if cfg.Input == "" {
		return fmt.Errorf("input is required for convert")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	in, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	log.Printf("converting %s", cfg.Input)
	log.Printf("config: chunk_size=%dMB prefix=%s compress=%s schema_only=%t data_only=%t",
		cfg.ChunkSizeMB, cfg.Prefix, cfg.Compress, cfg.SchemaOnly, cfg.DataOnly)

	parser := NewDDLParser()
	var chunks *ChunkWriter
	if !cfg.SchemaOnly {
		chunks = NewChunkWriter(cfg.OutputDir, cfg.Prefix, cfg.chunkBudget(), cfg.compressMode(), cfg.DisableTriggers)
	}

	scanner := NewStatementScanner(in)
	seen := 0
	for {
		stmt, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		seen++
		if seen%10000 == 0 {
			log.Printf("  %d statements processed...", seen)
		}

		if isInsert(stmt.Text) {
			if cfg.SchemaOnly {
				continue
			}
			if err := chunks.Write(InsertUnit{Index: stmt.Index, Text: rewriteInsert(stmt.Text)}); err != nil {
				return err
			}
			continue
		}
		if cfg.DataOnly {
			continue
		}
		if err := parser.Parse(stmt); err != nil {
			return err
		}
	}

	if chunks != nil {
		if err := chunks.Close(); err != nil {
			return err
		}
	}

	for _, w := range parser.Warnings() {
		log.Printf("  WARN: %s", w)
	}

	if !cfg.DataOnly {
		model := parser.Model()
		for _, w := range collectCollationWarnings(model) {
			log.Printf("  WARN: %s", w)
		}
		for _, w := range collectGeneratedColumnWarnings(model) {
			log.Printf("  WARN: %s", w)
		}
		ddlOut, err := os.Create(cfg.DDLFile)
		if err != nil {
			return fmt.Errorf("create ddl file: %w", err)
		}
		emitWarnings, err := emitDDL(model, ddlOut)
		for _, w := range emitWarnings {
			log.Printf("  WARN: %s", w)
		}
		if err != nil {
			ddlOut.Close()
			return fmt.Errorf("emit ddl: %w", err)
		}
		if err := ddlOut.Close(); err != nil {
			return fmt.Errorf("close ddl file: %w", err)
		}
		log.Printf("schema: %d tables, %d sequences, %d foreign keys, %d comments -> %s",
			len(model.Tables), len(model.Sequences), len(model.ForeignKeys), len(model.Comments), cfg.DDLFile)
	}

	if chunks != nil {
		nChunks, nStmts := chunks.Stats()
		log.Printf("data: %d INSERT statements in %d chunk(s) -> %s", nStmts, nChunks, cfg.OutputDir)
	}

	log.Printf("conversion completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
