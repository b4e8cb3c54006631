package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sermon-search-api/internal/config"
	"github.com/sermon-search-api/internal/handlers"
	"github.com/sermon-search-api/internal/middleware"
	"github.com/sermon-search-api/internal/pinned"
	"github.com/sermon-search-api/internal/repository"
	"github.com/sermon-search-api/internal/repository/postgres"
	"github.com/sermon-search-api/internal/repository/reranker"
	"github.com/sermon-search-api/internal/repository/vertex"
	"github.com/sermon-search-api/internal/services"
	pkgconfig "github.com/sermon-search-api/pkg/schema/config"
	"github.com/sermon-search-api/pkg/schema/db"
	pkgservices "github.com/sermon-search-api/pkg/schema/services"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Get configuration
	cfg := config.GetConfig()
	schemaCfg := pkgconfig.GetConfig()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSMiddleware())

	// Connect to PostgreSQL
	ctx := context.Background()
	dbClient, err := db.Connect(ctx, schemaCfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("Database connection established")

	// Create repositories
	pgRepo := postgres.NewSegmentRepository(dbClient)

	// Create segment index based on configuration
	var segmentIndex repository.SegmentIndex
	var vertexRepo *vertex.SegmentRepository // For cleanup

	switch cfg.VectorBackend {
	case "vertex":
		log.Println("Using Vertex AI Vector Search backend")
		vertexCfg := vertex.Config{
			ProjectID:            cfg.VertexProjectID,
			Location:             cfg.VertexLocation,
			IndexEndpointID:      cfg.VertexIndexEndpointID,
			DeployedIndexID:      cfg.VertexDeployedIndexID,
			PublicEndpointDomain: cfg.VertexPublicEndpointDomain,
		}
		vertexRepo, err = vertex.NewSegmentRepository(ctx, vertexCfg, dbClient)
		if err != nil {
			log.Fatalf("Failed to create Vertex AI segment repository: %v", err)
		}
		segmentIndex = vertexRepo
	default:
		log.Println("Using pgvector backend (unindexed)")
		segmentIndex = pgRepo
	}

	// Create services
	embeddingsSvc, err := pkgservices.NewEmbeddingsService(ctx, schemaCfg)
	if err != nil {
		log.Fatalf("Failed to initialize embeddings service: %v", err)
	}

	var rerankClient repository.Reranker
	if cfg.RerankerURL != "" {
		log.Printf("Using reranker at %s", cfg.RerankerURL)
		rerankClient = reranker.NewClient(cfg.RerankerURL, cfg.RerankerTimeout)
	}

	searchCfg := services.Config{
		Sermons:       services.CollectionLimits{Candidates: cfg.SermonCandidates, Results: cfg.SermonResults},
		Illustrations: services.CollectionLimits{Candidates: cfg.IllustrationCandidates, Results: cfg.IllustrationResults},
		Website:       services.CollectionLimits{Candidates: cfg.WebsiteCandidates, Results: cfg.WebsiteResults},
		RerankTimeout: cfg.RerankerTimeout,
	}
	matcher := pinned.NewMatcher(pinned.DefaultRules())
	searchSvc := services.NewSearchService(segmentIndex, rerankClient, embeddingsSvc, matcher, searchCfg)

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	// Register handlers
	healthHandler := handlers.NewHealthHandler(dbClient, pgRepo)
	healthHandler.RegisterRoutes(api)

	searchHandler := handlers.NewSearchHandler(searchSvc)
	searchHandler.RegisterRoutes(api)

	statsHandler := handlers.NewStatsHandler(pgRepo)
	statsHandler.RegisterRoutes(api)

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Starting %s v%s on %s", cfg.APITitle, cfg.APIVersion, addr)
		if err := e.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	if err := dbClient.Close(); err != nil {
		log.Printf("Error closing PostgreSQL: %v", err)
	}

	// Close Vertex AI client if used
	if vertexRepo != nil {
		if err := vertexRepo.Close(); err != nil {
			log.Printf("Error closing Vertex AI client: %v", err)
		}
	}

	log.Println("Server stopped")
}
