// enrich_topics.go
//
// This script backfills the topics column for segments that were indexed
// without tags. It asks Gemini for a short list of topical tags per segment
// and writes them back comma-joined, the format the API splits at read time.
//
// Environment variables:
//   POSTGRES_URI     - PostgreSQL connection string
//   GCP_PROJECT_ID   - Your GCP project ID
//   GEMINI_LOCATION  - Region for Gemini calls (default: global)
//
// Usage:
//   go run scripts/enrich/main.go -collection illustrations
//   go run scripts/enrich/main.go -collection sermon_segments -limit 200 -dry-run

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const geminiModel = "gemini-3-flash-preview"

var validCollections = map[string]bool{
	"sermon_segments": true,
	"illustrations":   true,
	"website_pages":   true,
}

// untaggedSegment is a row still missing topic tags.
type untaggedSegment struct {
	ID    string `db:"segment_id"`
	Title string `db:"title"`
	Text  string `db:"text"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	collection := flag.String("collection", "illustrations", "Table to enrich")
	limit := flag.Int("limit", 100, "Maximum segments to enrich in one run")
	dryRun := flag.Bool("dry-run", false, "Print tags without writing them back")
	flag.Parse()

	godotenv.Load()

	if !validCollections[*collection] {
		return fmt.Errorf("unknown collection %q", *collection)
	}

	ctx := context.Background()

	db, err := sqlx.Connect("postgres", os.Getenv("POSTGRES_URI"))
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID environment variable is required")
	}
	location := os.Getenv("GEMINI_LOCATION")
	if location == "" {
		location = "global"
	}
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}
	defer client.Close()

	segments, err := untaggedSegments(ctx, db, *collection, *limit)
	if err != nil {
		return fmt.Errorf("select untagged segments: %w", err)
	}
	log.Printf("Found %d untagged segments in %s", len(segments), *collection)

	updated := 0
	for i, seg := range segments {
		log.Printf("[%d/%d] Tagging %s...", i+1, len(segments), seg.ID)

		topics, err := generateTopics(ctx, client, seg)
		if err != nil {
			log.Printf("  Warning: failed to tag %s: %v", seg.ID, err)
			continue
		}
		if len(topics) == 0 {
			log.Printf("  No topics returned for %s", seg.ID)
			continue
		}
		log.Printf("  Topics: %s", strings.Join(topics, ", "))

		if *dryRun {
			continue
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(
			"UPDATE %s SET topics = $1 WHERE segment_id = $2", *collection),
			strings.Join(topics, ", "), seg.ID); err != nil {
			return fmt.Errorf("update %s: %w", seg.ID, err)
		}
		updated++
	}

	log.Printf("Tagged %d of %d segments", updated, len(segments))
	return nil
}

func untaggedSegments(ctx context.Context, db *sqlx.DB, collection string, limit int) ([]untaggedSegment, error) {
	var segments []untaggedSegment
	err := db.SelectContext(ctx, &segments, fmt.Sprintf(`
		SELECT segment_id, title, text
		FROM %s
		WHERE topics IS NULL OR topics = ''
		ORDER BY segment_id
		LIMIT $1
	`, collection), limit)
	return segments, err
}

func generateTopics(ctx context.Context, client *genai.Client, seg untaggedSegment) ([]string, error) {
	prompt := fmt.Sprintf(`You are cataloguing sermon transcript excerpts for a topical search index.

Read this excerpt and list 3 to 6 topic tags a church member might search for when they need it.

RECORDING: %s
EXCERPT: "%s"

INSTRUCTIONS:
- Use short lowercase tags, one or two words each (e.g., "forgiveness", "marriage", "trusting god")
- Tag what the excerpt teaches, not what it merely mentions in passing
- Prefer everyday words over theological jargon; people search for "worry", not "anxiety doctrine"

Return ONLY a JSON array of strings, no explanation. Example:
["forgiveness", "anger", "family conflict"]`,
		seg.Title, seg.Text)

	model := client.GenerativeModel(geminiModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	return parseJSONArray(extractText(resp))
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}

func parseJSONArray(text string) ([]string, error) {
	// Strip markdown code fences if the model wrapped its answer
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result []string
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse JSON array: %w (raw: %s)", err, text)
	}
	return result, nil
}
