package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinicnotes/internal/config"
	"clinicnotes/internal/metrics"
	"clinicnotes/internal/pipeline"
	"clinicnotes/internal/ratelimit"
	"clinicnotes/internal/services"
	"clinicnotes/internal/storage"
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	logger *zap.Logger
}

// NewServer wires services over an opened store. The caller owns the store and limiter
// store lifecycles.
func NewServer(cfg config.Config, store *storage.Store, limiterStore ratelimit.Store, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	m := metrics.New()
	runner := pipeline.NewRunner(m)

	api := &API{
		cfg:        cfg,
		logger:     logger,
		patients:   services.NewPatientService(store.Patients(), runner),
		voiceNotes: services.NewVoiceNoteService(store.VoiceNotes(), store.Patients(), runner),
		summaries:  services.NewSummaryService(store.Summaries(), store.VoiceNotes(), store.Patients(), runner),
		exports:    services.NewExportService(store.Patients(), store.VoiceNotes(), runner),
		pdf:        services.NewPDFService(),
		share:      services.NewShareService(cfg),
		limiter:    ratelimit.New(limiterStore, cfg.RateLimit.Max, cfg.RateLimit.Window),
		metrics:    m,
	}

	engine := gin.New()
	engine.Use(RequestID())
	engine.Use(Recovery(logger))
	engine.Use(RequestLogger(logger))
	engine.Use(Metrics(m))
	engine.Use(CORS(cfg.AllowedOrigins))
	engine.Use(MaxBodySize(cfg.MaxBodyBytes))

	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg, logger: logger}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
