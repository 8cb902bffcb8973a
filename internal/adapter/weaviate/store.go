// Package weaviate implements the vector data plane on Weaviate: one class
// per namespace, vectors supplied by the caller.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// WritePoints writes points in a single batch request. Weaviate acknowledges
// the request as a whole but reports failures per object, so both are checked.
func (s *Store) WritePoints(ctx context.Context, className string, points []vector.Point) error {
	objects := make([]*models.Object, len(points))
	for i, p := range points {
		objects[i] = &models.Object{
			Class: className,
			ID:    strfmt.UUID(p.ID),
			Properties: map[string]interface{}{
				vector.PropDocumentID:  p.DocumentID,
				vector.PropNamespaceID: p.NamespaceID,
				vector.PropChunkText:   p.Text,
				vector.PropChunkIndex:  p.ChunkIndex,
			},
			Vector: p.Vector,
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			errs = append(errs, fmt.Errorf("object %s: %s", r.ID, e.Message))
		}
	}
	return errors.Join(errs...)
}

// DeleteByDocument removes every object of the document. One batch delete
// touches at most QUERY_MAXIMUM_RESULTS objects, so it repeats while the
// server reports that the limit was reached.
func (s *Store) DeleteByDocument(ctx context.Context, className, documentID string) error {
	for {
		resp, err := s.client.Batch().ObjectsBatchDeleter().
			WithClassName(className).
			WithOutput("minimal").
			WithWhere(documentFilter(documentID)).
			Do(ctx)
		if err != nil {
			return err
		}
		if resp == nil || resp.Results == nil {
			return nil
		}
		r := resp.Results
		if r.Failed > 0 {
			return fmt.Errorf("%d objects of document %s could not be deleted", r.Failed, documentID)
		}
		if r.Limit == 0 || r.Matches < r.Limit || r.Successful == 0 {
			return nil
		}
	}
}

// NearVector runs a cosine nearest-neighbour query. Weaviate reports cosine
// distance; the score returned is 1 - distance.
func (s *Store) NearVector(ctx context.Context, className string, query []float32, limit int) ([]vector.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(query)

	fields := []graphql.Field{
		{Name: vector.PropDocumentID},
		{Name: vector.PropChunkText},
		{Name: vector.PropChunkIndex},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if err := graphQLError(res); err != nil {
		return nil, err
	}

	matches := []vector.Match{}
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return matches, nil
	}
	rows, ok := data[className].([]interface{})
	if !ok {
		return matches, nil
	}

	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		m := vector.Match{}
		if v, ok := props[vector.PropDocumentID].(string); ok {
			m.DocumentID = v
		}
		if v, ok := props[vector.PropChunkText].(string); ok {
			m.ChunkText = v
		}
		if v, ok := props[vector.PropChunkIndex].(float64); ok {
			m.ChunkIndex = int(v)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				m.Score = float32(1 - d)
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Count aggregates the number of objects in the class, restricted to one
// document when documentID is set.
func (s *Store) Count(ctx context.Context, className, documentID string) (int, error) {
	agg := s.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if documentID != "" {
		agg = agg.WithWhere(documentFilter(documentID))
	}

	res, err := agg.Do(ctx)
	if err != nil {
		return 0, err
	}
	if err := graphQLError(res); err != nil {
		return 0, err
	}

	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := data[className].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

func documentFilter(documentID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{vector.PropDocumentID}).
		WithOperator(filters.Equal).
		WithValueText(documentID)
}

func graphQLError(res *models.GraphQLResponse) error {
	if len(res.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql error: %s", strings.Join(msgs, "; "))
}
