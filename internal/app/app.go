package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/job"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/mcp"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/stats"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/middleware"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/worker"
)

var errNoBroker = errors.New("no message broker configured")

type App struct {
	Handler  http.Handler
	Consumer *worker.TaskConsumer

	core *Core
	cfg  *config.Config
}

func New(cfg *config.Config, core *Core) (*App, error) {
	docHandler := document.NewHandler(core.Documents, cfg.UploadDir, cfg.MaxFileBytes)
	jobHandler := job.NewHandler(core.Jobs)
	statsHandler := stats.NewHandler(core.Stats)

	mcpServer, err := mcp.NewServer(core.Retrieval, core.Documents)
	if err != nil {
		return nil, fmt.Errorf("mcp server: %w", err)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /namespaces/{namespace}/documents", middleware.CorrelationID(http.HandlerFunc(docHandler.Create)))
	mux.Handle("POST /namespaces/{namespace}/documents/upload", middleware.CorrelationID(http.HandlerFunc(docHandler.Upload)))
	mux.Handle("GET /namespaces/{namespace}/documents", middleware.CorrelationID(http.HandlerFunc(docHandler.List)))
	mux.Handle("GET /namespaces/{namespace}/documents/{id}", middleware.CorrelationID(http.HandlerFunc(docHandler.Get)))
	mux.Handle("DELETE /namespaces/{namespace}/documents/{id}", middleware.CorrelationID(http.HandlerFunc(docHandler.Delete)))
	mux.Handle("DELETE /namespaces/{namespace}", middleware.CorrelationID(http.HandlerFunc(docHandler.DeleteNamespace)))

	mux.Handle("GET /jobs/failed", middleware.CorrelationID(http.HandlerFunc(jobHandler.List)))
	mux.Handle("GET /jobs/failed/{id}", middleware.CorrelationID(http.HandlerFunc(jobHandler.Get)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(http.HandlerFunc(jobHandler.Retry)))

	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))
	mux.Handle("/mcp", middleware.CorrelationID(mcpServer.Handler()))
	mux.Handle("GET /metrics", core.Metrics.Handler())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:  mux,
		Consumer: worker.NewTaskConsumer(core.Orchestrator, cfg.IngestionTimeout()),
		core:     core,
		cfg:      cfg,
	}, nil
}

// Run serves the operator API and, when enabled, consumes ingestion tasks
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.EnableWorker {
		consumer, err := a.startConsumer()
		if err != nil {
			return err
		}
		defer consumer.Stop()
		go a.revalidateLoop(ctx)
	}

	if !a.cfg.EnableAPI {
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) startConsumer() (*nsq.Consumer, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = max(a.cfg.IngestionConcurrency, 1)
	nsqCfg.MsgTimeout = a.cfg.IngestionTimeout() + time.Minute

	consumer, err := nsq.NewConsumer(config.TopicIngestDocument, config.ChannelIngestWorker, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}
	consumer.AddConcurrentHandlers(a.Consumer, nsqCfg.MaxInFlight)

	if a.cfg.NSQLookupd != "" {
		err = consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd)
	} else {
		err = consumer.ConnectToNSQD(a.cfg.NSQDHost)
	}
	if err != nil {
		consumer.Stop()
		return nil, fmt.Errorf("nsq connect error: %w", err)
	}
	slog.Info("ingestion consumer connected", "topic", config.TopicIngestDocument, "concurrency", nsqCfg.MaxInFlight)
	return consumer, nil
}

func (a *App) revalidateLoop(ctx context.Context) {
	interval := a.cfg.RegistryRevalidateInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.core.RevalidateRegistry(ctx)
		}
	}
}
