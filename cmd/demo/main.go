// Command demo walks through the library end to end against a live
// Elasticsearch: index setup, bulk indexing, filtered search, aggregations,
// and single-document operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jonesrussell/esmodel"
	"github.com/jonesrussell/esmodel/internal/demo"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := &esmodel.Config{
		URL:        getenv("ELASTICSEARCH_URL", "http://localhost:9200"),
		Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}

	client, err := esmodel.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	mapper, err := demo.NewShirtMapper(client, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Start from a clean slate, then bring the logical index up.
	index := mapper.Index()
	if err := index.Delete(ctx); err != nil {
		return err
	}
	if err := index.Setup(ctx); err != nil {
		return err
	}
	logger.Info("index ready", zap.String("alias", index.Alias()))

	shirts := demo.SeedShirts(time.Now().UTC())
	ids, err := mapper.BulkIndex(ctx, shirts)
	if err != nil {
		return err
	}
	logger.Info("shirts indexed", zap.Int("count", len(ids)))

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"color": "red"}},
					map[string]any{"term": map[string]any{"brand": "gucci"}},
				},
			},
		},
		"aggs": map[string]any{
			"models": map[string]any{"terms": map[string]any{"field": "model"}},
		},
	}

	response, err := mapper.Search(ctx, query)
	if err != nil {
		return err
	}
	if !response.Success() {
		return fmt.Errorf("search reported shard failures or a timeout")
	}

	docs, err := response.Documents()
	if err != nil {
		return err
	}
	for _, shirt := range docs {
		logger.Info("matched shirt",
			zap.String("id", shirt.GetID()),
			zap.String("brand", shirt.Brand),
			zap.String("color", shirt.Color),
			zap.String("model", shirt.Model),
		)
	}
	for name, buckets := range response.Buckets() {
		for _, bucket := range buckets {
			logger.Info("aggregation bucket",
				zap.String("aggregation", name),
				zap.Any("key", bucket.Key),
				zap.Int64("doc_count", bucket.DocCount),
			)
		}
	}

	// Single-document round trip.
	fetched, err := mapper.Get(ctx, ids[0])
	if err != nil {
		return err
	}
	fetched.Model = "regular"
	if _, err := mapper.Save(ctx, fetched, esmodel.WithRefresh(true)); err != nil {
		return err
	}
	if err := mapper.Delete(ctx, fetched, esmodel.WithRefresh(true)); err != nil {
		return err
	}

	// Deleting again reports not-found, which retries can treat as done.
	var notFound *esmodel.NotFoundError
	if err := mapper.Delete(ctx, fetched); !errors.As(err, &notFound) {
		return fmt.Errorf("expected not-found on second delete, got %v", err)
	}
	logger.Info("demo complete")
	return nil
}
