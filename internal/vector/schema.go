package vector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/weaviate/weaviate/entities/models"
)

const (
	PropDocumentID  = "documentId"
	PropNamespaceID = "namespaceId"
	PropChunkText   = "chunkText"
	PropChunkIndex  = "chunkIndex"

	classPrefix = "Workspace_"
)

// SchemaClient defines the Weaviate schema operations the registry needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
	DeleteClass(ctx context.Context, className string) error
}

// ClassName maps a namespace to its Weaviate class. Class names must match
// [A-Z][_0-9A-Za-z]*; when the namespace needs rewriting to fit, a digest
// suffix keeps distinct namespaces on distinct classes.
func ClassName(namespace string) string {
	var b strings.Builder
	rewritten := false
	for _, r := range namespace {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
		rewritten = true
	}

	name := classPrefix + b.String()
	if rewritten || namespace == "" {
		sum := sha256.Sum256([]byte(namespace))
		name += "_" + hex.EncodeToString(sum[:4])
	}
	return name
}

func properties() []*models.Property {
	return []*models.Property{
		{
			Name:         PropDocumentID,
			DataType:     []string{"text"},
			Tokenization: "field",
		},
		{
			Name:         PropNamespaceID,
			DataType:     []string{"text"},
			Tokenization: "field",
		},
		{
			Name:     PropChunkText,
			DataType: []string{"text"},
		},
		{
			Name:     PropChunkIndex,
			DataType: []string{"int"},
		},
	}
}

func classDefinition(className, namespace string) *models.Class {
	return &models.Class{
		Class:       className,
		Description: "Document chunks for namespace " + namespace,
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: properties(),
	}
}

// ensureProperties adds any property a class created by an older build lacks.
func ensureProperties(ctx context.Context, client SchemaClient, className string) error {
	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}

	for _, p := range properties() {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}
	return nil
}
