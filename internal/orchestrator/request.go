package orchestrator

import (
	"net/url"
	"strings"
	"time"

	"ingest-api/cmd/defines"
	"ingest-api/internal/destinations"
	"ingest-api/internal/models"
	"ingest-api/pkg/errors"
	"ingest-api/pkg/utils"
)

// ProcessingRequest is everything one ingestion run needs. Credentials come
// from the request body, falling back to configuration.
type ProcessingRequest struct {
	SourceLocation    string
	SourceCredentials models.SourceCredentials
	IngestionAPIKey   string
	Destination       destinations.Destination

	Strategy         defines.Strategy
	ChunkingStrategy defines.ChunkingStrategy
	Enrich           bool

	WaitForCompletion bool
	WebhookURL        string
	MaxWait           time.Duration
	PollInterval      time.Duration
}

// Validate reports every missing and invalid field in one ValidationError
func (r ProcessingRequest) Validate() error {
	var missing, invalid []string

	if strings.TrimSpace(r.SourceLocation) == "" {
		missing = append(missing, "source_location")
	} else if _, err := models.ParseSourceLocation(r.SourceLocation); err != nil {
		invalid = append(invalid, "source_location: "+err.Error())
	}
	if r.SourceCredentials.AccessKey == "" {
		missing = append(missing, "aws_key")
	}
	if r.SourceCredentials.SecretKey == "" {
		missing = append(missing, "aws_secret")
	}
	if r.IngestionAPIKey == "" {
		missing = append(missing, "unstructured_api_key")
	}

	if r.Destination == nil {
		missing = append(missing, "destination")
	} else {
		for _, f := range r.Destination.MissingFields() {
			if !utils.Contains(missing, f) {
				missing = append(missing, f)
			}
		}
	}

	if _, ok := defines.ParseStrategy(string(r.Strategy)); !ok {
		invalid = append(invalid, "strategy: must be one of "+joinStrategies())
	}
	if _, ok := defines.ParseChunkingStrategy(string(r.ChunkingStrategy)); !ok {
		invalid = append(invalid, "chunking_strategy: must be by_title or by_page")
	}
	if r.WebhookURL != "" && !isHTTPURL(r.WebhookURL) {
		invalid = append(invalid, "webhook_url: must be an absolute http(s) URL")
	}
	if r.MaxWait < 0 {
		invalid = append(invalid, "max_wait_seconds: must not be negative")
	}
	if r.PollInterval < 0 {
		invalid = append(invalid, "poll_interval_seconds: must not be negative")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return errors.NewValidationError(missing, invalid)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func joinStrategies() string {
	names := make([]string, len(defines.Strategies))
	for i, s := range defines.Strategies {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
