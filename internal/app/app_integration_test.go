package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/app"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/testutils"
)

func TestApp_EndToEnd_Ingestion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	cfg := s.GetAppConfig()
	cfg.ServerPort = 18081
	cfg.NSQLookupd = ""
	cfg.UploadDir = t.TempDir()
	cfg.QueryLogPath = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.Bootstrap(ctx, cfg)
	require.NoError(t, err)
	defer deps.Close()

	core := app.NewCore(cfg, deps, testutils.NewHashEmbedder(cfg.EmbeddingDimension), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer core.Close()

	a, err := app.New(cfg, core)
	require.NoError(t, err)
	go func() { _ = a.Run(ctx) }()

	base := fmt.Sprintf("http://localhost:%d", cfg.ServerPort)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 15*time.Second, 200*time.Millisecond)

	body := `{"display_name":"policy","text":"Employees may carry over five vacation days into the next year."}`
	resp, err := http.Post(base+"/namespaces/acme/documents", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var created struct{ Data document.Document }
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		doc, err := core.Documents.Status(ctx, created.Data.ID)
		return err == nil && doc.Status == document.StatusCompleted
	}, 60*time.Second, 500*time.Millisecond)

	matches, err := core.Retrieval.Search(ctx, "acme", "vacation days carry over", nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, created.Data.ID, matches[0].DocumentID)

	require.NoError(t, core.Documents.DeleteNamespace(ctx, "acme"))
	matches, err = core.Retrieval.Search(ctx, "acme", "vacation days carry over", nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
