package destinations

import (
	"fmt"
	"strings"
	"unicode"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
)

// Destination is one of the closed set of sinks the remote service writes to.
// Only the variants in this package implement it.
type Destination interface {
	Kind() defines.DestinationKind
	// RequiresEmbedding reports whether an embed node must run before the sink
	RequiresEmbedding() bool
	// UsesNamespace reports whether records are partitioned by a namespace
	// derived from the source location
	UsesNamespace() bool
	// ConnectorConfig is the create-destination body for this sink
	ConnectorConfig(name, namespace string) models.ConnectorConfig
	// MissingFields lists the request field names that are still empty
	MissingFields() []string
	// Describe returns non-secret fields safe to log or send in a webhook
	Describe() map[string]any

	sealed()
}

// Relational writes elements into a Postgres (Supabase) table
type Relational struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	TableName    string
	BatchSize    int
	Embed        bool
	EnsureSchema bool
}

func (Relational) Kind() defines.DestinationKind { return defines.DestinationRelational }
func (d Relational) RequiresEmbedding() bool     { return d.Embed }
func (Relational) UsesNamespace() bool           { return false }
func (Relational) sealed()                       {}

func (d Relational) ConnectorConfig(name, _ string) models.ConnectorConfig {
	return models.ConnectorConfig{
		Name: name,
		Type: "postgres",
		Config: map[string]any{
			"host":       d.Host,
			"database":   d.Database,
			"port":       d.Port,
			"username":   d.Username,
			"password":   d.Password,
			"table_name": d.TableName,
			"batch_size": d.BatchSize,
		},
	}
}

func (d Relational) MissingFields() []string {
	var missing []string
	if d.Host == "" {
		missing = append(missing, "db_host")
	}
	if d.Port == 0 {
		missing = append(missing, "db_port")
	}
	if d.Password == "" {
		missing = append(missing, "db_password")
	}
	if d.TableName == "" {
		missing = append(missing, "table_name")
	}
	return missing
}

func (d Relational) Describe() map[string]any {
	return map[string]any{
		"destination": string(defines.DestinationRelational),
		"host":        d.Host,
		"database":    d.Database,
		"table_name":  d.TableName,
	}
}

// VectorStore writes embedded chunks into Pinecone or Weaviate
type VectorStore struct {
	Provider   defines.VectorProvider
	APIKey     string
	IndexName  string // pinecone
	ClusterURL string // weaviate
	BatchSize  int
}

func (VectorStore) Kind() defines.DestinationKind { return defines.DestinationVectorStore }
func (VectorStore) RequiresEmbedding() bool       { return true }
func (VectorStore) UsesNamespace() bool           { return true }
func (VectorStore) sealed()                       {}

func (d VectorStore) ConnectorConfig(name, namespace string) models.ConnectorConfig {
	if d.Provider == defines.VectorProviderWeaviate {
		return models.ConnectorConfig{
			Name: name,
			Type: "weaviate-cloud",
			Config: map[string]any{
				"cluster_url": d.ClusterURL,
				"api_key":     d.APIKey,
				"collection":  WeaviateClassName(namespace),
			},
		}
	}
	return models.ConnectorConfig{
		Name: name,
		Type: "pinecone",
		Config: map[string]any{
			"index_name": d.IndexName,
			"api_key":    d.APIKey,
			"namespace":  namespace,
			"batch_size": d.BatchSize,
		},
	}
}

func (d VectorStore) MissingFields() []string {
	var missing []string
	if d.APIKey == "" {
		missing = append(missing, "vector_api_key")
	}
	switch d.Provider {
	case defines.VectorProviderWeaviate:
		if d.ClusterURL == "" {
			missing = append(missing, "cluster_url")
		}
	default:
		if d.IndexName == "" {
			missing = append(missing, "index_name")
		}
	}
	return missing
}

func (d VectorStore) Describe() map[string]any {
	out := map[string]any{
		"destination": string(defines.DestinationVectorStore),
		"provider":    string(d.Provider),
	}
	if d.Provider == defines.VectorProviderWeaviate {
		out["cluster_url"] = d.ClusterURL
	} else {
		out["index_name"] = d.IndexName
	}
	return out
}

// ObjectStore writes element JSON back to an S3 location
type ObjectStore struct {
	RemoteURL string
	AccessKey string
	SecretKey string
}

func (ObjectStore) Kind() defines.DestinationKind { return defines.DestinationObjectStore }
func (ObjectStore) RequiresEmbedding() bool       { return false }
func (ObjectStore) UsesNamespace() bool           { return false }
func (ObjectStore) sealed()                       {}

func (d ObjectStore) ConnectorConfig(name, _ string) models.ConnectorConfig {
	return models.ConnectorConfig{
		Name: name,
		Type: "s3",
		Config: map[string]any{
			"remote_url": d.RemoteURL,
			"key":        d.AccessKey,
			"secret":     d.SecretKey,
		},
	}
}

func (d ObjectStore) MissingFields() []string {
	var missing []string
	if d.RemoteURL == "" {
		missing = append(missing, "destination_location")
	}
	if d.AccessKey == "" {
		missing = append(missing, "aws_key")
	}
	if d.SecretKey == "" {
		missing = append(missing, "aws_secret")
	}
	return missing
}

func (d ObjectStore) Describe() map[string]any {
	return map[string]any{
		"destination":          string(defines.DestinationObjectStore),
		"destination_location": d.RemoteURL,
	}
}

// WeaviateClassName turns a namespace such as "clients-acme" into a valid
// class name such as "IngestClientsAcme"
func WeaviateClassName(namespace string) string {
	var b strings.Builder
	b.WriteString("Ingest")
	upperNext := true
	for _, r := range namespace {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// ParseKind maps a route or request value onto a destination kind
func ParseKind(s string) (defines.DestinationKind, error) {
	switch defines.DestinationKind(strings.ToLower(strings.TrimSpace(s))) {
	case defines.DestinationRelational, "postgres", "supabase":
		return defines.DestinationRelational, nil
	case defines.DestinationVectorStore, "pinecone", "weaviate":
		return defines.DestinationVectorStore, nil
	case defines.DestinationObjectStore, "s3":
		return defines.DestinationObjectStore, nil
	}
	return "", fmt.Errorf("unknown destination %q", s)
}
