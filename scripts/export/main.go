// export_segments.go
//
// This script exports indexed segments from PostgreSQL to a JSONL file, one
// object per line. Two formats:
//
//   -format audit   (default) full segment metadata for corpus review
//   -format vertex  Vertex AI Vector Search datapoints with a "collection"
//                   restrict, ready for gsutil upload and index creation
//
// Environment variables:
//   POSTGRES_URI - PostgreSQL connection string
//
// Usage:
//   go run scripts/export/main.go -output segments.jsonl
//   go run scripts/export/main.go -format vertex -output embeddings.jsonl

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
)

var collections = []string{"sermon_segments", "illustrations", "website_pages"}

// DataPoint is a Vertex AI Vector Search datapoint
type DataPoint struct {
	ID        string     `json:"id"`
	Embedding []float32  `json:"embedding"`
	Restricts []Restrict `json:"restricts,omitempty"`
}

// Restrict defines a token-based filter
type Restrict struct {
	Namespace string   `json:"namespace"`
	Allow     []string `json:"allow"`
}

// AuditRecord carries the full stored segment for corpus review
type AuditRecord struct {
	ID             string `json:"id"`
	Collection     string `json:"collection"`
	Title          string `json:"title"`
	SourceID       string `json:"source_id"`
	StartTime      string `json:"start_time"`
	URL            string `json:"url"`
	TimestampedURL string `json:"timestamped_url"`
	Topics         string `json:"topics"`
	Text           string `json:"text"`
}

func main() {
	outputFile := flag.String("output", "segments.jsonl", "Output JSONL file path")
	format := flag.String("format", "audit", "Output format: audit or vertex")
	flag.Parse()

	godotenv.Load()

	if *format != "audit" && *format != "vertex" {
		log.Fatalf("Unknown format %q (want audit or vertex)", *format)
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

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	count := 0

	for _, table := range collections {
		rows, err := db.QueryxContext(ctx, fmt.Sprintf(`
			SELECT segment_id, title, source_id, start_time, url,
			       timestamped_url, topics, text,
			       embedding::text AS embedding_text
			FROM %s
			WHERE embedding IS NOT NULL
			ORDER BY segment_id
		`, table))
		if err != nil {
			log.Fatalf("Failed to query %s: %v", table, err)
		}

		tableCount := 0
		for rows.Next() {
			var rec AuditRecord
			var embeddingText string
			if err := rows.Scan(&rec.ID, &rec.Title, &rec.SourceID, &rec.StartTime,
				&rec.URL, &rec.TimestampedURL, &rec.Topics, &rec.Text, &embeddingText); err != nil {
				rows.Close()
				log.Fatalf("Failed to scan row: %v", err)
			}
			rec.Collection = table

			if *format == "vertex" {
				embedding, err := parseEmbedding(embeddingText)
				if err != nil {
					log.Printf("Warning: failed to parse embedding for %s: %v", rec.ID, err)
					continue
				}
				err = encoder.Encode(DataPoint{
					ID:        rec.ID,
					Embedding: embedding,
					Restricts: []Restrict{
						{Namespace: "collection", Allow: []string{table}},
					},
				})
				if err != nil {
					rows.Close()
					log.Fatalf("Failed to encode datapoint: %v", err)
				}
			} else {
				if err := encoder.Encode(rec); err != nil {
					rows.Close()
					log.Fatalf("Failed to encode record: %v", err)
				}
			}

			count++
			tableCount++
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			log.Fatalf("Error iterating %s: %v", table, err)
		}
		rows.Close()

		log.Printf("  %s: %d segments", table, tableCount)
	}

	log.Printf("Exported %d segments to %s", count, *outputFile)
	if *format == "vertex" {
		log.Println()
		log.Println("Next steps:")
		log.Printf("  gsutil cp %s gs://YOUR_BUCKET/embeddings/", *outputFile)
		log.Println("  then create the index (see GCP console or Vertex AI docs)")
	}
}

// parseEmbedding parses a pgvector text representation like "[0.1,0.2,0.3]"
func parseEmbedding(text string) ([]float32, error) {
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")

	if text == "" {
		return nil, fmt.Errorf("empty embedding")
	}

	parts := strings.Split(text, ",")
	result := make([]float32, len(parts))

	for i, p := range parts {
		var val float32
		_, err := fmt.Sscanf(strings.TrimSpace(p), "%f", &val)
		if err != nil {
			return nil, fmt.Errorf("parse float at position %d: %w", i, err)
		}
		result[i] = val
	}

	return result, nil
}
