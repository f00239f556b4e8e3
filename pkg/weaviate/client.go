package weaviate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate/entities/models"
)

type WeaviateClient struct {
	*weaviate.Client
}

// NewWeaviateClient connects to a Weaviate Cloud cluster such as
// https://abc.weaviate.cloud using an API key
func NewWeaviateClient(clusterURL, apiKey string) (*WeaviateClient, error) {
	cfg, err := clientConfig(clusterURL, apiKey)
	if err != nil {
		return nil, err
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize weaviate client for %s: %w", clusterURL, err)
	}

	return &WeaviateClient{Client: client}, nil
}

func clientConfig(clusterURL, apiKey string) (weaviate.Config, error) {
	raw := strings.TrimSpace(clusterURL)
	if raw == "" {
		return weaviate.Config{}, fmt.Errorf("weaviate cluster url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return weaviate.Config{}, fmt.Errorf("invalid weaviate cluster url %q", clusterURL)
	}

	cfg := weaviate.Config{
		Host:   u.Host,
		Scheme: u.Scheme,
	}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}
	return cfg, nil
}

// elementProperties mirror the element metadata the ingestion service writes
var elementProperties = []*models.Property{
	{Name: "text", DataType: []string{"text"}},
	{Name: "element_id", DataType: []string{"text"}},
	{Name: "record_id", DataType: []string{"text"}},
	{Name: "type", DataType: []string{"text"}},
	{Name: "filename", DataType: []string{"text"}},
	{Name: "page_number", DataType: []string{"int"}},
	{Name: "text_as_html", DataType: []string{"text"}},
	{Name: "image_description", DataType: []string{"text"}},
	{Name: "table_description", DataType: []string{"text"}},
}

// EnsureClass creates className for pre-embedded elements unless it already exists
func (w *WeaviateClient) EnsureClass(ctx context.Context, className string) error {
	exists, err := w.Client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check weaviate class %s: %w", className, err)
	}
	if exists {
		return nil
	}

	err = w.Client.Schema().ClassCreator().
		WithClass(&models.Class{
			Class:       className,
			Description: "Document elements written by the ingestion pipeline",
			Vectorizer:  "none",
			Properties:  elementProperties,
		}).
		Do(ctx)

	if err != nil {
		// another request may have created it in the meantime
		exists, _ := w.Client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
		if exists {
			return nil
		}
		return fmt.Errorf("failed to create weaviate class %s: %w", className, err)
	}

	fylogger.InfoLog(ctx, "created weaviate class", map[string]interface{}{
		"class_name": className,
	})
	return nil
}

// Ping reports whether the cluster answers its readiness probe
func (w *WeaviateClient) Ping(ctx context.Context) error {
	ready, err := w.Client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}
