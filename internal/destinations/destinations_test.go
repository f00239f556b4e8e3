package destinations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-api/cmd/defines"
)

func TestRelationalConnectorConfig(t *testing.T) {
	d := Relational{
		Host: "db.example.com", Port: 6543, Database: "postgres", Username: "postgres",
		Password: "pw", TableName: "elements", BatchSize: 100,
	}

	cfg := d.ConnectorConfig("dest", "ignored")

	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "dest", cfg.Name)
	assert.Equal(t, 6543, cfg.Config["port"])
	assert.Equal(t, "elements", cfg.Config["table_name"])
	assert.False(t, d.RequiresEmbedding())
	assert.False(t, d.UsesNamespace())
	assert.Empty(t, d.MissingFields())
	assert.NotContains(t, d.Describe(), "password")
}

func TestRelationalMissingFields(t *testing.T) {
	assert.Equal(t, []string{"db_host", "db_port", "db_password", "table_name"}, Relational{}.MissingFields())
}

func TestVectorStorePinecone(t *testing.T) {
	d := VectorStore{Provider: defines.VectorProviderPinecone, APIKey: "k", IndexName: "docs", BatchSize: 50}

	cfg := d.ConnectorConfig("dest", "clients-acme")

	assert.Equal(t, "pinecone", cfg.Type)
	assert.Equal(t, "clients-acme", cfg.Config["namespace"])
	assert.Equal(t, "docs", cfg.Config["index_name"])
	assert.True(t, d.RequiresEmbedding())
	assert.True(t, d.UsesNamespace())
}

func TestVectorStoreWeaviate(t *testing.T) {
	d := VectorStore{Provider: defines.VectorProviderWeaviate, APIKey: "k", ClusterURL: "https://c.weaviate.cloud"}

	cfg := d.ConnectorConfig("dest", "clients-acme")

	assert.Equal(t, "weaviate-cloud", cfg.Type)
	assert.Equal(t, "IngestClientsAcme", cfg.Config["collection"])
	assert.Empty(t, d.MissingFields())
}

func TestVectorStoreMissingFields(t *testing.T) {
	assert.Equal(t, []string{"vector_api_key", "index_name"}, VectorStore{Provider: defines.VectorProviderPinecone}.MissingFields())
	assert.Equal(t, []string{"vector_api_key", "cluster_url"}, VectorStore{Provider: defines.VectorProviderWeaviate}.MissingFields())
}

func TestObjectStore(t *testing.T) {
	d := ObjectStore{RemoteURL: "s3://out/processed/", AccessKey: "a", SecretKey: "s"}

	cfg := d.ConnectorConfig("dest", "")

	assert.Equal(t, "s3", cfg.Type)
	assert.Equal(t, "s3://out/processed/", cfg.Config["remote_url"])
	assert.False(t, d.RequiresEmbedding())
	assert.Equal(t, []string{"destination_location", "aws_key", "aws_secret"}, ObjectStore{}.MissingFields())
}

func TestWeaviateClassName(t *testing.T) {
	assert.Equal(t, "IngestClientsAcme", WeaviateClassName("clients-acme"))
	assert.Equal(t, "IngestDefault", WeaviateClassName("default"))
	assert.Equal(t, "IngestQ1Reports2024", WeaviateClassName("q1-reports-2024"))
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]defines.DestinationKind{
		"relational": defines.DestinationRelational,
		"Supabase":   defines.DestinationRelational,
		"vector":     defines.DestinationVectorStore,
		"pinecone":   defines.DestinationVectorStore,
		"object":     defines.DestinationObjectStore,
		"s3":         defines.DestinationObjectStore,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("mongo")
	assert.Error(t, err)
}
