package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
)

const defaultPublishTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("timeout waiting for NSQ publish")

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo           Repository
	pub            EventPublisher
	logger         *slog.Logger
	publishTimeout time.Duration
}

func NewService(repo Repository, pub EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pub: pub, logger: logger, publishTimeout: defaultPublishTimeout}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

// ListNamespace filters List to one namespace. An empty namespace returns all.
func (s *Service) ListNamespace(ctx context.Context, namespace string) ([]Job, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil || namespace == "" {
		return jobs, err
	}
	out := jobs[:0:0]
	for _, j := range jobs {
		if j.NamespaceID == namespace {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.Get(ctx, id)
}

// Retry puts the job's original task back on the ingestion topic and drops
// the job. The document is FAILED at this point, so the worker can claim it.
func (s *Service) Retry(ctx context.Context, id string) error {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.pub.Publish(config.TopicIngestDocument, job.Payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(s.publishTimeout):
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "failed job requeued", "job_id", id, "document_id", job.DocumentID, "retries", job.Retries)
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
