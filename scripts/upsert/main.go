// upsert_segments.go
//
// This script ingests exported transcript segments into PostgreSQL: it reads
// a JSON export, drops non-teaching content (worship lyrics, announcements,
// placeholder titles), embeds the survivors in batches, and inserts them into
// the target collection table.
//
// Input format is a JSON array of segment objects:
//   [{"id": "abc123_0042", "title": "How To Press On (03/26/2017)",
//     "source_id": "sGIJP13TxPQ", "start_time": "2382",
//     "url": "https://www.youtube.com/watch?v=sGIJP13TxPQ",
//     "topics": "perseverance, trials", "text": "..."}, ...]
//
// Environment variables:
//   POSTGRES_URI           - PostgreSQL connection string
//   EMBEDDING_PROVIDER     - "vertex" or "custom" (default: custom)
//   EMBEDDING_SERVICE_URL  - Custom embedding service URL
//
// Usage:
//   go run scripts/upsert/main.go -input segments.json -collection sermon_segments
//   go run scripts/upsert/main.go -input pages.json -collection website_pages -no-filter

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/sermon-search-api/internal/ranking"
	"github.com/sermon-search-api/pkg/schema/config"
	"github.com/sermon-search-api/pkg/schema/services"
)

const embedBatchSize = 50

var validCollections = map[string]bool{
	"sermon_segments": true,
	"illustrations":   true,
	"website_pages":   true,
}

// segmentRecord mirrors the transcript export format.
type segmentRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	SourceID       string `json:"source_id"`
	StartTime      string `json:"start_time"`
	URL            string `json:"url"`
	TimestampedURL string `json:"timestamped_url"`
	Topics         string `json:"topics"`
	Text           string `json:"text"`
}

func main() {
	inputFile := flag.String("input", "", "Input JSON file of segments (required)")
	collection := flag.String("collection", "sermon_segments", "Target table")
	noFilter := flag.Bool("no-filter", false, "Skip the teaching-content filter")
	flag.Parse()

	godotenv.Load()

	if *inputFile == "" {
		log.Fatal("-input is required")
	}
	if !validCollections[*collection] {
		log.Fatalf("Unknown collection %q (want sermon_segments, illustrations, or website_pages)", *collection)
	}

	postgresURI := os.Getenv("POSTGRES_URI")
	if postgresURI == "" {
		log.Fatal("POSTGRES_URI environment variable is required")
	}

	ctx := context.Background()

	db, err := sqlx.ConnectContext(ctx, "postgres", postgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	embeddings, err := services.NewEmbeddingsService(ctx, config.GetConfig())
	if err != nil {
		log.Fatalf("Failed to initialize embeddings service: %v", err)
	}

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	var records []segmentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("Failed to parse input JSON: %v", err)
	}
	log.Printf("Loaded %d segments from %s", len(records), *inputFile)

	// Filter before embedding; no point paying for content we would discard
	// at query time anyway.
	kept := records[:0]
	skipped := 0
	for _, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			skipped++
			continue
		}
		if !*noFilter && !ranking.KeepSegment(rec.Title, rec.Text) {
			skipped++
			continue
		}
		kept = append(kept, rec)
	}
	log.Printf("Kept %d segments, skipped %d", len(kept), skipped)

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (segment_id, title, source_id, start_time, url, timestamped_url, topics, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (segment_id) DO UPDATE SET
			title = EXCLUDED.title,
			source_id = EXCLUDED.source_id,
			start_time = EXCLUDED.start_time,
			url = EXCLUDED.url,
			timestamped_url = EXCLUDED.timestamped_url,
			topics = EXCLUDED.topics,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`, *collection)

	total := 0
	for start := 0; start < len(kept); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(kept) {
			end = len(kept)
		}
		batch := kept[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.Text
		}

		vectors, err := embeddings.EmbedSegments(ctx, texts)
		if err != nil {
			log.Fatalf("Failed to embed batch at %d: %v", start, err)
		}
		if len(vectors) != len(batch) {
			log.Fatalf("Embedding count mismatch: got %d for %d texts", len(vectors), len(batch))
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			log.Fatalf("Failed to begin transaction: %v", err)
		}
		for i, rec := range batch {
			timestamped := rec.TimestampedURL
			if timestamped == "" && rec.URL != "" && rec.StartTime != "" {
				timestamped = fmt.Sprintf("%s&t=%ss", rec.URL, rec.StartTime)
			}
			if _, err := tx.ExecContext(ctx, insertSQL,
				rec.ID, rec.Title, rec.SourceID, rec.StartTime, rec.URL,
				timestamped, rec.Topics, rec.Text,
				pgvector.NewVector(float32Slice(vectors[i]))); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to insert segment %s: %v", rec.ID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			log.Fatalf("Failed to commit batch: %v", err)
		}

		total += len(batch)
		log.Printf("Inserted %d / %d segments", total, len(kept))
	}

	log.Printf("Successfully upserted %d segments into %s", total, *collection)
}

func float32Slice(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
