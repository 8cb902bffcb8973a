package job

import (
	"encoding/json"
	"time"
)

// Job is a failed ingestion kept for inspection and retry. Payload is the
// original queue message.
type Job struct {
	ID          string          `json:"id"`
	DocumentID  string          `json:"document_id"`
	NamespaceID string          `json:"namespace_id"`
	Handler     string          `json:"handler"`
	Payload     json.RawMessage `json:"payload"`
	Error       string          `json:"error"`
	Retries     int             `json:"retries"`
	CreatedAt   time.Time       `json:"created_at"`
}
