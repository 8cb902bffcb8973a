// Package memory is an in-process vector store speaking the same schema and
// data-plane contracts as the Weaviate adapter. It backs local mode and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/weaviate/weaviate/entities/models"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

var (
	ErrClassNotFound = errors.New("class not found")
	ErrClassExists   = errors.New("class already exists")
)

type collection struct {
	class  *models.Class
	points []vector.Point
}

// Store keeps one collection per class. Every collection accepts only
// vectors of the dimension the Store was built with.
type Store struct {
	dimension int

	mu      sync.RWMutex
	classes map[string]*collection
}

func NewStore(dimension int) *Store {
	return &Store{dimension: dimension, classes: make(map[string]*collection)}
}

func (s *Store) ClassExists(_ context.Context, className string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.classes[className]
	return ok, nil
}

func (s *Store) CreateClass(_ context.Context, class *models.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[class.Class]; ok {
		return fmt.Errorf("%w: %s", ErrClassExists, class.Class)
	}
	s.classes[class.Class] = &collection{class: class}
	return nil
}

func (s *Store) GetClass(_ context.Context, className string) (*models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[className]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	return c.class, nil
}

func (s *Store) AddProperty(_ context.Context, className string, property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[className]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	c.class.Properties = append(c.class.Properties, property)
	return nil
}

func (s *Store) DeleteClass(_ context.Context, className string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[className]; !ok {
		return fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	delete(s.classes, className)
	return nil
}

func (s *Store) WritePoints(_ context.Context, className string, points []vector.Point) error {
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("point %s: vector length %d, collection dimension %d", p.ID, len(p.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[className]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	c.points = append(c.points, points...)
	return nil
}

func (s *Store) DeleteByDocument(_ context.Context, className, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[className]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	kept := c.points[:0]
	for _, p := range c.points {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	c.points = kept
	return nil
}

// NearVector ranks points by cosine similarity. Ties keep insertion order.
func (s *Store) NearVector(_ context.Context, className string, query []float32, limit int) ([]vector.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[className]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}

	matches := make([]vector.Match, 0, len(c.points))
	for _, p := range c.points {
		matches = append(matches, vector.Match{
			DocumentID: p.DocumentID,
			ChunkText:  p.Text,
			ChunkIndex: p.ChunkIndex,
			Score:      cosine(query, p.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) Count(_ context.Context, className, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[className]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	if documentID == "" {
		return len(c.points), nil
	}
	n := 0
	for _, p := range c.points {
		if p.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
