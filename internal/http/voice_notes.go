package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/validation"
)

func (a *API) handleListVoiceNotes(c *gin.Context) {
	filter := domain.VoiceNoteFilter{PatientID: c.Query("patientId")}
	notes, err := a.voiceNotes.List(c.Request.Context(), filter)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, notes)
}

func (a *API) handleGetVoiceNote(c *gin.Context) {
	note, err := a.voiceNotes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, note)
}

func (a *API) handleCreateVoiceNote(c *gin.Context) {
	raw, err := validation.Decode(c.Request.Body)
	if err != nil {
		a.respondError(c, err)
		return
	}

	note, err := a.voiceNotes.Create(c.Request.Context(), raw)
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Voice note created",
		zap.String("requestId", requestID(c)),
		zap.String("voiceNoteId", note.ID),
		zap.String("patientId", note.PatientID),
	)
	respondData(c, http.StatusCreated, note)
}

func (a *API) handleDeleteVoiceNote(c *gin.Context) {
	id := c.Param("id")
	if err := a.voiceNotes.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Voice note deleted", zap.String("requestId", requestID(c)), zap.String("voiceNoteId", id))
	c.Status(http.StatusNoContent)
}
