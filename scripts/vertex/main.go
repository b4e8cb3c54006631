// vertex_index.go
//
// This script manages the optional Vertex AI Vector Search index: create the
// index and endpoint, deploy one to the other, and stream segment embeddings
// from PostgreSQL into the index with a "collection" restrict so queries can
// filter per collection.
//
// Environment variables:
//   POSTGRES_URI          - PostgreSQL connection string (for -upsert)
//   GCP_PROJECT_ID        - Your GCP project ID
//   VERTEX_LOCATION       - Region (default: us-central1)
//   VERTEX_INDEX_ID       - The index ID to update (for -upsert)
//   GCS_BUCKET_URI        - Cloud Storage URI with initial embeddings
//   INDEX_DISPLAY_NAME    - Display name for the index (default: sermon-segments)
//   EMBEDDING_DIMENSIONS  - Embedding vector width (default: 768)
//
// Usage:
//   go run scripts/vertex/main.go -create-index
//   go run scripts/vertex/main.go -create-endpoint
//   go run scripts/vertex/main.go -deploy -index-id=XXX -endpoint-id=YYY
//   go run scripts/vertex/main.go -upsert
//
// After deployment, add the IDs to your .env:
//   VERTEX_INDEX_ENDPOINT_ID=<endpoint_id>
//   VERTEX_DEPLOYED_INDEX_ID=<deployed_index_id>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

const upsertBatchSize = 100

var collections = []string{"sermon_segments", "illustrations", "website_pages"}

func main() {
	createIndex := flag.Bool("create-index", false, "Create a new index")
	createEndpoint := flag.Bool("create-endpoint", false, "Create a new endpoint")
	deployIndex := flag.Bool("deploy", false, "Deploy index to endpoint")
	upsert := flag.Bool("upsert", false, "Stream embeddings from PostgreSQL into the index")
	indexID := flag.String("index-id", "", "Index ID (for deploy)")
	endpointID := flag.String("endpoint-id", "", "Endpoint ID (for deploy)")
	flag.Parse()

	godotenv.Load()

	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		projectID = os.Getenv("VERTEX_PROJECT_ID")
	}
	if projectID == "" {
		log.Fatal("GCP_PROJECT_ID or VERTEX_PROJECT_ID environment variable is required")
	}

	location := os.Getenv("VERTEX_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	displayName := os.Getenv("INDEX_DISPLAY_NAME")
	if displayName == "" {
		displayName = "sermon-segments"
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
	endpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)
	parent := fmt.Sprintf("projects/%s/locations/%s", projectID, location)

	switch {
	case *createIndex:
		createNewIndex(ctx, endpoint, parent, displayName, os.Getenv("GCS_BUCKET_URI"), dimensions)
	case *createEndpoint:
		createNewEndpoint(ctx, endpoint, parent, displayName)
	case *deployIndex:
		if *indexID == "" || *endpointID == "" {
			log.Fatal("--index-id and --endpoint-id are required for deployment")
		}
		deployIndexToEndpoint(ctx, endpoint, parent, *indexID, *endpointID, displayName)
	case *upsert:
		upsertEmbeddings(ctx, endpoint, parent)
	default:
		fmt.Println("Vertex AI Vector Search Setup")
		fmt.Println("=============================")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  1. Create index:    go run scripts/vertex/main.go -create-index")
		fmt.Println("  2. Create endpoint: go run scripts/vertex/main.go -create-endpoint")
		fmt.Println("  3. Deploy:          go run scripts/vertex/main.go -deploy -index-id=XXX -endpoint-id=YYY")
		fmt.Println("  4. Upsert:          go run scripts/vertex/main.go -upsert")
		fmt.Println()
		fmt.Println("Current configuration:")
		fmt.Printf("  Project ID:   %s\n", projectID)
		fmt.Printf("  Location:     %s\n", location)
		fmt.Printf("  Display Name: %s\n", displayName)
		fmt.Printf("  Dimensions:   %d\n", dimensions)
	}
}

func createNewIndex(ctx context.Context, endpoint, parent, displayName, gcsBucketURI string, dimensions int) {
	log.Printf("Creating Vertex AI Vector Search index...")
	log.Printf("  Parent: %s", parent)
	log.Printf("  Display Name: %s", displayName)
	log.Printf("  Dimensions: %d", dimensions)

	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		log.Fatalf("Failed to create index client: %v", err)
	}
	defer client.Close()

	// The metadata has a nested "config" structure with algorithmConfig required
	treeAhConfig, _ := structpb.NewStruct(map[string]interface{}{
		"leafNodeEmbeddingCount":   1000,
		"leafNodesToSearchPercent": 5,
	})

	algorithmConfig, _ := structpb.NewStruct(map[string]interface{}{
		"treeAhConfig": treeAhConfig.AsMap(),
	})

	configStruct, _ := structpb.NewStruct(map[string]interface{}{
		"dimensions":                dimensions,
		"approximateNeighborsCount": 150,
		"distanceMeasureType":       "COSINE_DISTANCE",
		"algorithmConfig":           algorithmConfig.AsMap(),
	})

	metadata := map[string]interface{}{
		"config": configStruct.AsMap(),
	}
	if gcsBucketURI != "" {
		metadata["contentsDeltaUri"] = gcsBucketURI
	}
	indexConfig, _ := structpb.NewStruct(metadata)

	req := &aiplatformpb.CreateIndexRequest{
		Parent: parent,
		Index: &aiplatformpb.Index{
			DisplayName:       displayName,
			Description:       "Sermon transcript segment embeddings for semantic search",
			Metadata:          structpb.NewStructValue(indexConfig),
			IndexUpdateMethod: aiplatformpb.Index_STREAM_UPDATE,
		},
	}

	op, err := client.CreateIndex(ctx, req)
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	log.Printf("Index creation started. Operation: %s", op.Name())
	log.Printf("This may take 30-60 minutes. You can check status in the GCP Console.")
	log.Println("Waiting for index creation to complete...")

	index, err := op.Wait(ctx)
	if err != nil {
		log.Fatalf("Index creation failed: %v", err)
	}

	log.Printf("Index created successfully!")
	log.Printf("  Index Name: %s", index.Name)
	log.Printf("  Index ID: %s", extractID(index.Name))
	log.Println()
	log.Println("Next step: Create an endpoint:")
	log.Println("  go run scripts/vertex/main.go -create-endpoint")
}

func createNewEndpoint(ctx context.Context, endpoint, parent, displayName string) {
	log.Printf("Creating Vertex AI Vector Search endpoint...")
	log.Printf("  Parent: %s", parent)

	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		log.Fatalf("Failed to create endpoint client: %v", err)
	}
	defer client.Close()

	req := &aiplatformpb.CreateIndexEndpointRequest{
		Parent: parent,
		IndexEndpoint: &aiplatformpb.IndexEndpoint{
			DisplayName:           displayName + "-endpoint",
			Description:           "Public endpoint for sermon segment search",
			PublicEndpointEnabled: true,
		},
	}

	op, err := client.CreateIndexEndpoint(ctx, req)
	if err != nil {
		log.Fatalf("Failed to create endpoint: %v", err)
	}

	log.Printf("Endpoint creation started. Operation: %s", op.Name())
	log.Println("Waiting for endpoint creation...")

	indexEndpoint, err := op.Wait(ctx)
	if err != nil {
		log.Fatalf("Endpoint creation failed: %v", err)
	}

	log.Printf("Endpoint created successfully!")
	log.Printf("  Endpoint Name: %s", indexEndpoint.Name)
	log.Printf("  Endpoint ID: %s", extractID(indexEndpoint.Name))
	log.Printf("  Public Domain: %s", indexEndpoint.PublicEndpointDomainName)
	log.Println()
	log.Println("Next step: Deploy the index to the endpoint:")
	log.Printf("  go run scripts/vertex/main.go -deploy -index-id=<INDEX_ID> -endpoint-id=%s", extractID(indexEndpoint.Name))
}

func deployIndexToEndpoint(ctx context.Context, endpoint, parent, indexID, endpointID, displayName string) {
	log.Printf("Deploying index to endpoint...")
	log.Printf("  Index ID: %s", indexID)
	log.Printf("  Endpoint ID: %s", endpointID)

	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		log.Fatalf("Failed to create endpoint client: %v", err)
	}
	defer client.Close()

	indexEndpointName := fmt.Sprintf("%s/indexEndpoints/%s", parent, endpointID)
	indexName := fmt.Sprintf("%s/indexes/%s", parent, indexID)

	// Deployed index IDs must start with a letter and use only letters,
	// numbers, and underscores.
	sanitizedName := strings.ReplaceAll(displayName, "-", "_")
	deployedIndexID := fmt.Sprintf("deployed_%s_%d", sanitizedName, time.Now().Unix())

	req := &aiplatformpb.DeployIndexRequest{
		IndexEndpoint: indexEndpointName,
		DeployedIndex: &aiplatformpb.DeployedIndex{
			Id:    deployedIndexID,
			Index: indexName,
			AutomaticResources: &aiplatformpb.AutomaticResources{
				MinReplicaCount: 1,
				MaxReplicaCount: 2,
			},
		},
	}

	op, err := client.DeployIndex(ctx, req)
	if err != nil {
		log.Fatalf("Failed to deploy index: %v", err)
	}

	log.Printf("Deployment started. Operation: %s", op.Name())
	log.Println("This may take 20-30 minutes. Waiting...")

	resp, err := op.Wait(ctx)
	if err != nil {
		log.Fatalf("Deployment failed: %v", err)
	}

	log.Printf("Index deployed successfully!")
	log.Println()
	log.Println("Add these to your .env file:")
	log.Printf("  VERTEX_INDEX_ENDPOINT_ID=%s", endpointID)
	log.Printf("  VERTEX_DEPLOYED_INDEX_ID=%s", deployedIndexID)
	log.Println()
	log.Printf("Deployed index: %+v", resp.DeployedIndex)
}

func upsertEmbeddings(ctx context.Context, endpoint, parent string) {
	postgresURI := os.Getenv("POSTGRES_URI")
	if postgresURI == "" {
		log.Fatal("POSTGRES_URI environment variable is required")
	}
	indexID := os.Getenv("VERTEX_INDEX_ID")
	if indexID == "" {
		log.Fatal("VERTEX_INDEX_ID environment variable is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", postgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		log.Fatalf("Failed to create index client: %v", err)
	}
	defer client.Close()

	indexName := fmt.Sprintf("%s/indexes/%s", parent, indexID)
	log.Printf("Upserting embeddings to index: %s", indexName)

	totalCount := 0
	for _, table := range collections {
		rows, err := db.QueryxContext(ctx, fmt.Sprintf(`
			SELECT segment_id, embedding::text AS embedding_text
			FROM %s
			WHERE embedding IS NOT NULL
			ORDER BY segment_id
		`, table))
		if err != nil {
			log.Fatalf("Failed to query %s: %v", table, err)
		}

		var batch []*aiplatformpb.IndexDatapoint
		tableCount := 0

		for rows.Next() {
			var segmentID, embeddingText string
			if err := rows.Scan(&segmentID, &embeddingText); err != nil {
				rows.Close()
				log.Fatalf("Failed to scan row: %v", err)
			}

			embedding, err := parseEmbedding(embeddingText)
			if err != nil {
				log.Printf("Warning: failed to parse embedding for %s: %v", segmentID, err)
				continue
			}

			batch = append(batch, &aiplatformpb.IndexDatapoint{
				DatapointId:   segmentID,
				FeatureVector: embedding,
				Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
					{
						Namespace: "collection",
						AllowList: []string{table},
					},
				},
			})
			tableCount++

			if len(batch) >= upsertBatchSize {
				if err := upsertBatch(ctx, client, indexName, batch); err != nil {
					rows.Close()
					log.Fatalf("Failed to upsert batch: %v", err)
				}
				totalCount += len(batch)
				batch = batch[:0]
			}
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			log.Fatalf("Error iterating %s: %v", table, err)
		}
		rows.Close()

		if len(batch) > 0 {
			if err := upsertBatch(ctx, client, indexName, batch); err != nil {
				log.Fatalf("Failed to upsert final batch: %v", err)
			}
			totalCount += len(batch)
		}

		log.Printf("  %s: %d datapoints", table, tableCount)
	}

	log.Printf("Successfully upserted %d embeddings to Vertex AI Vector Search", totalCount)
}

func upsertBatch(ctx context.Context, client *aiplatform.IndexClient, indexName string, datapoints []*aiplatformpb.IndexDatapoint) error {
	req := &aiplatformpb.UpsertDatapointsRequest{
		Index:      indexName,
		Datapoints: datapoints,
	}

	_, err := client.UpsertDatapoints(ctx, req)
	return err
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

func extractID(resourceName string) string {
	// Resource names are like: projects/X/locations/Y/indexes/Z
	for i := len(resourceName) - 1; i >= 0; i-- {
		if resourceName[i] == '/' {
			return resourceName[i+1:]
		}
	}
	return resourceName
}
