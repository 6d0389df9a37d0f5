package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinicnotes/internal/config"
	"clinicnotes/internal/metrics"
	"clinicnotes/internal/ratelimit"
	"clinicnotes/internal/services"
)

type API struct {
	cfg        config.Config
	logger     *zap.Logger
	patients   *services.PatientService
	voiceNotes *services.VoiceNoteService
	summaries  *services.SummaryService
	exports    *services.ExportService
	pdf        *services.PDFService
	share      *services.ShareService
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/health", api.handleHealth)
	if api.cfg.MetricsEnabled && api.metrics != nil {
		r.GET("/metrics", gin.WrapH(api.metrics.Handler()))
	}

	apiGuards := []gin.HandlerFunc{RateLimit(api.limiter, api.metrics, api.logger), APIKey(api.cfg.APIKey, api.logger)}
	apiGroup := r.Group("/api", apiGuards...)
	{
		apiGroup.GET("/patients", api.handleListPatients)
		apiGroup.GET("/patients/:id", api.handleGetPatient)
		apiGroup.POST("/patients", api.handleCreatePatient)
		apiGroup.PATCH("/patients/:id", api.handleUpdatePatient)
		apiGroup.DELETE("/patients/:id", api.handleDeletePatient)

		apiGroup.GET("/voice-notes", api.handleListVoiceNotes)
		apiGroup.GET("/voice-notes/:id", api.handleGetVoiceNote)
		apiGroup.POST("/voice-notes", api.handleCreateVoiceNote)
		apiGroup.DELETE("/voice-notes/:id", api.handleDeleteVoiceNote)

		apiGroup.GET("/summaries", api.handleListSummaries)
		apiGroup.GET("/summaries/:id", api.handleGetSummary)
		apiGroup.POST("/summaries", api.handleCreateSummary)
		apiGroup.DELETE("/summaries/:id", api.handleDeleteSummary)
		apiGroup.GET("/summaries/:id/pdf", api.handleSummaryPDF)
		apiGroup.POST("/summaries/:id/share", api.handleShareSummary)

		apiGroup.GET("/exports/patients", api.handleExportPatients)
	}

	r.GET("/share/summaries/:id/pdf", RateLimit(api.limiter, api.metrics, api.logger), api.handleServeSharedPDF)

	r.NoRoute(notFound(apiGuards))
}

// notFound answers unmatched paths. Paths under /api pass the limiter and the key check
// before the 404.
func notFound(apiGuards []gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			for _, guard := range apiGuards {
				guard(c)
				if c.IsAborted() {
					return
				}
			}
		}
		respondMessage(c, http.StatusNotFound, msgNotFound)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}
