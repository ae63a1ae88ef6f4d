package cantor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tdeslauriers/cantor/internal/auth"
	"github.com/tdeslauriers/cantor/internal/catalog"
	"github.com/tdeslauriers/cantor/internal/config"
	"github.com/tdeslauriers/cantor/internal/pipeline"
	"github.com/tdeslauriers/cantor/internal/publish"
	"github.com/tdeslauriers/cantor/internal/review"
	"github.com/tdeslauriers/cantor/internal/song"
	"github.com/tdeslauriers/cantor/internal/storage"
	"github.com/tdeslauriers/cantor/internal/upload"
	"github.com/tdeslauriers/cantor/internal/util"
)

// Cantor is the interface for the engine that runs this service.
type Cantor interface {

	// Run serves the http surface until interrupted, then shuts down
	// gracefully.
	Run() error

	// Close releases the engine's resources.
	Close() error
}

// New creates a new Cantor service instance, returning a pointer to the
// concrete implementation.
func New(cfg *config.Config) (Cantor, error) {

	registry, err := song.NewRegistry(cfg.Data.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload registry: %v", err)
	}

	objStore, err := storage.New(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PublicUrl: cfg.Storage.PublicUrl,
		UseTls:    cfg.Storage.UseTls,
	})
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("failed to create object storage service: %v", err)
	}

	// ingestion pipeline and its collaborators
	ingest := pipeline.NewPipeline(
		cfg.Data.Root,
		cfg.Pipeline.Concurrency,
		registry,
		pipeline.NewConverter(pipeline.NewRunner(), cfg.Pipeline.SofficeBin, cfg.Pipeline.PdftoppmBin),
		pipeline.NewDiskGuard(cfg.Data.Root, cfg.Pipeline.DiskThresholdPercent),
		pipeline.NewTrimmer(cfg.Pipeline.CompareImagePath),
		pipeline.NewDirLocks(),
	)

	catalogStore := catalog.NewStore(filepath.Join(cfg.Data.Root, util.CatalogFile))
	reviewSvc := review.NewService(cfg.Data.Root)
	verifier := auth.NewVerifier(cfg.Admin.Secret)

	return &cantor{
		config:    *cfg,
		registry:  registry,
		pipeline:  ingest,
		catalog:   catalogStore,
		review:    reviewSvc,
		publisher: publish.NewPublisher(catalogStore, reviewSvc, objStore),
		verifier:  verifier,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageCantor)).
			With(slog.String(util.ComponentKey, util.ComponentCantor)),
	}, nil
}

var _ Cantor = (*cantor)(nil)

// cantor is the concrete implementation of the Cantor interface.
type cantor struct {
	config    config.Config
	registry  song.Registry
	pipeline  pipeline.Pipeline
	catalog   catalog.Store
	review    review.Service
	publisher publish.Publisher
	verifier  auth.Verifier

	logger *slog.Logger
}

// Close releases the engine's resources.
func (c *cantor) Close() error {
	if err := c.registry.Close(); err != nil {
		c.logger.Error(fmt.Sprintf("failed to close upload registry: %v", err))
		return err
	}
	return nil
}

// Run is the concrete implementation of the interface method which serves
// the http surface until interrupted.
func (c *cantor) Run() error {

	// pick up any work left from a previous run
	if c.pipeline.Trigger(context.Background()) {
		c.logger.Info("startup pipeline run triggered")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			c.logger.Error(fmt.Sprintf("failed to write health response: %v", err))
		}
	})

	// public catalog reads
	songs := catalog.NewHandler(c.catalog)

	// upload boundary + pipeline trigger
	up := upload.NewHandler(c.config.Data.Root, c.registry, c.pipeline, c.verifier)
	proc := pipeline.NewHandler(c.pipeline)

	// admin review surface
	rev := review.NewHandler(c.review, c.publisher, c.verifier)

	r.Route("/api", func(r chi.Router) {
		r.Get("/songs", songs.HandleSongs)
		r.Post("/songs/upload", up.HandleUpload)
		r.Get("/songs/{song}", songs.HandleSong)

		r.Get("/pipeline/process", proc.HandleProcess)

		r.Route("/review/songs", func(r chi.Router) {
			r.Get("/", rev.HandlePendingSongs)
			r.Get("/{song}", rev.HandlePendingImages)
			r.Post("/{song}", rev.HandleCurate)
			r.Delete("/{song}", rev.HandleDelete)
			r.Get("/{song}/images/{image}", rev.HandleImage)
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", c.config.Server.Host, c.config.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		c.logger.Info(fmt.Sprintf("starting %s service on %s", util.ServiceCantor, server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return fmt.Errorf("failed to serve %s service: %v", util.ServiceCantor, err)
	case sig := <-stop:
		c.logger.Info(fmt.Sprintf("received signal %s, shutting down", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down %s service cleanly: %v", util.ServiceCantor, err)
	}

	return nil
}
