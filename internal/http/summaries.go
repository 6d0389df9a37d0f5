package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinicnotes/internal/services"
	"clinicnotes/internal/validation"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (a *API) handleListSummaries(c *gin.Context) {
	summaries, err := a.summaries.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, summaries)
}

func (a *API) handleGetSummary(c *gin.Context) {
	summary, err := a.summaries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, summary)
}

func (a *API) handleCreateSummary(c *gin.Context) {
	raw, err := validation.Decode(c.Request.Body)
	if err != nil {
		a.respondError(c, err)
		return
	}

	summary, err := a.summaries.Create(c.Request.Context(), raw)
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Summary created",
		zap.String("requestId", requestID(c)),
		zap.String("summaryId", summary.ID),
		zap.String("voiceNoteId", summary.VoiceNoteID),
	)
	respondData(c, http.StatusCreated, summary)
}

func (a *API) handleDeleteSummary(c *gin.Context) {
	id := c.Param("id")
	if err := a.summaries.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Summary deleted", zap.String("requestId", requestID(c)), zap.String("summaryId", id))
	c.Status(http.StatusNoContent)
}

func (a *API) handleSummaryPDF(c *gin.Context) {
	a.renderSummaryPDF(c, c.Param("id"), "inline")
}

func (a *API) handleShareSummary(c *gin.Context) {
	summary, err := a.summaries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}

	link := a.share.Generate(summary.ID)
	a.logger.Info("Summary share link issued",
		zap.String("requestId", requestID(c)),
		zap.String("summaryId", summary.ID),
		zap.Time("expiresAt", link.ExpiresAt),
	)
	c.JSON(http.StatusOK, link)
}

// handleServeSharedPDF is public; the signed query string is the only credential.
func (a *API) handleServeSharedPDF(c *gin.Context) {
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	switch err := a.share.Verify(c.Request.URL.Path, expires, signature); {
	case errors.Is(err, services.ErrLinkExpired):
		respondMessage(c, http.StatusGone, "link expired")
		return
	case err != nil:
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	}

	a.renderSummaryPDF(c, c.Param("id"), "attachment")
}

func (a *API) renderSummaryPDF(c *gin.Context, id, disposition string) {
	doc, err := a.summaries.Document(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := a.pdf.RenderSummary(&buf, doc); err != nil {
		a.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="summary-%s.pdf"`, disposition, doc.Summary.ID))
	c.Data(http.StatusOK, contentTypePDF, buf.Bytes())
}

func (a *API) handleExportPatients(c *gin.Context) {
	var buf bytes.Buffer
	if err := a.exports.WritePatients(c.Request.Context(), &buf); err != nil {
		a.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="patients.xlsx"`)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}
