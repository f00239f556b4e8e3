package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	fylogger "github.com/FyersDev/trading-logger-go"

	"ingest-api/internal/models"
)

// Notifier delivers job results to webhook receivers, once, best effort
type Notifier struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewNotifier creates a notifier whose POSTs give up after timeout
func NewNotifier(timeout time.Duration) *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Envelope builds the JSON body sent to the webhook. Context fields never
// override the result fields.
func (n *Notifier) Envelope(result models.JobResult, fields map[string]any) map[string]any {
	body := make(map[string]any, len(fields)+6)
	for k, v := range fields {
		body[k] = v
	}
	body["event"] = "ingestion.job." + string(result.Status)
	body["timestamp"] = n.now().UTC().Format(time.RFC3339)
	body["job_id"] = result.JobID
	body["status"] = string(result.Status)
	body["elapsed_seconds"] = result.ElapsedSeconds
	if result.Error != "" {
		body["error"] = result.Error
	} else {
		body["error"] = nil
	}
	return body
}

// Notify posts the envelope to webhookURL. An empty URL is a no-op. Delivery
// errors are logged and dropped.
func (n *Notifier) Notify(ctx context.Context, webhookURL string, result models.JobResult, fields map[string]any) {
	if webhookURL == "" {
		return
	}

	logFields := map[string]interface{}{"job_id": result.JobID, "webhook_url": webhookURL}

	if err := n.post(ctx, webhookURL, n.Envelope(result, fields)); err != nil {
		fylogger.ErrorLog(ctx, "webhook delivery failed", err, logFields)
		return
	}
	fylogger.InfoLog(ctx, "webhook delivered", logFields)
}

func (n *Notifier) post(ctx context.Context, webhookURL string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook receiver returned %d", resp.StatusCode)
	}
	return nil
}
