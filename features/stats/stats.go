package stats

import (
	"context"
	"fmt"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
)

type DocumentCounter interface {
	CountByStatus(ctx context.Context) (map[document.Status]int, error)
	SumChunks(ctx context.Context) (int, error)
}

type JobCounter interface {
	Count(ctx context.Context) (int, error)
}

// Snapshot is the operator view of the pipeline.
type Snapshot struct {
	Documents     int                     `json:"documents"`
	ByStatus      map[document.Status]int `json:"by_status"`
	IndexedChunks int                     `json:"indexed_chunks"`
	FailedJobs    int                     `json:"failed_jobs"`
}

type Service struct {
	docs DocumentCounter
	jobs JobCounter
}

func NewService(docs DocumentCounter, jobs JobCounter) *Service {
	return &Service{docs: docs, jobs: jobs}
}

func (s *Service) Collect(ctx context.Context) (*Snapshot, error) {
	byStatus, err := s.docs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.docs.SumChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum chunks: %w", err)
	}
	failed, err := s.jobs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count failed jobs: %w", err)
	}

	snap := &Snapshot{
		ByStatus:      map[document.Status]int{},
		IndexedChunks: chunks,
		FailedJobs:    failed,
	}
	for _, st := range []document.Status{document.StatusPending, document.StatusProcessing, document.StatusCompleted, document.StatusFailed} {
		snap.ByStatus[st] = byStatus[st]
		snap.Documents += byStatus[st]
	}
	return snap, nil
}
