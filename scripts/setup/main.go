// setup_schema.go
//
// This script creates the PostgreSQL schema for the sermon search corpus:
// the pgvector extension, one table per collection, and cosine indexes.
//
// Environment variables:
//   POSTGRES_URI          - PostgreSQL connection string
//   EMBEDDING_DIMENSIONS  - Embedding vector width (default: 768)
//
// Usage:
//   go run scripts/setup/main.go
//   go run scripts/setup/main.go -drop   (drop and recreate all tables)

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

var collections = []string{"sermon_segments", "illustrations", "website_pages"}

func main() {
	drop := flag.Bool("drop", false, "Drop existing tables before creating")
	flag.Parse()

	godotenv.Load()

	postgresURI := os.Getenv("POSTGRES_URI")
	if postgresURI == "" {
		log.Fatal("POSTGRES_URI environment variable is required")
	}

	dimensions := 768
	if v := os.Getenv("EMBEDDING_DIMENSIONS"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid EMBEDDING_DIMENSIONS: %v", err)
		}
		dimensions = d
	}

	ctx := context.Background()

	db, err := sqlx.ConnectContext(ctx, "postgres", postgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Fatalf("Failed to create pgvector extension: %v", err)
	}
	log.Println("pgvector extension ready")

	for _, table := range collections {
		if *drop {
			if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
				log.Fatalf("Failed to drop %s: %v", table, err)
			}
			log.Printf("Dropped %s", table)
		}

		if _, err := db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				segment_id      TEXT PRIMARY KEY,
				title           TEXT NOT NULL DEFAULT '',
				source_id       TEXT NOT NULL DEFAULT '',
				start_time      TEXT NOT NULL DEFAULT '',
				url             TEXT NOT NULL DEFAULT '',
				timestamped_url TEXT NOT NULL DEFAULT '',
				topics          TEXT NOT NULL DEFAULT '',
				text            TEXT NOT NULL,
				embedding       vector(%d),
				created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, table, dimensions)); err != nil {
			log.Fatalf("Failed to create %s: %v", table, err)
		}

		// ivfflat needs rows to pick centroids; fine to build on an empty
		// table, but rebuild after a large initial load.
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
		`, table, table)); err != nil {
			log.Fatalf("Failed to create vector index on %s: %v", table, err)
		}

		if _, err := db.ExecContext(ctx, fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source_id)
		`, table, table)); err != nil {
			log.Fatalf("Failed to create source index on %s: %v", table, err)
		}

		log.Printf("Table %s ready (vector(%d))", table, dimensions)
	}

	log.Println("Schema setup complete")
	log.Println()
	log.Println("Next step: ingest transcript segments:")
	log.Println("  go run scripts/upsert/main.go -input segments.json -collection sermon_segments")
}
