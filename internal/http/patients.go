package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinicnotes/internal/validation"
)

func (a *API) handleListPatients(c *gin.Context) {
	patients, err := a.patients.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, patients)
}

func (a *API) handleGetPatient(c *gin.Context) {
	patient, err := a.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, patient)
}

func (a *API) handleCreatePatient(c *gin.Context) {
	raw, err := validation.Decode(c.Request.Body)
	if err != nil {
		a.respondError(c, err)
		return
	}

	patient, err := a.patients.Create(c.Request.Context(), raw)
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Patient created", zap.String("requestId", requestID(c)), zap.String("patientId", patient.ID))
	respondData(c, http.StatusCreated, patient)
}

func (a *API) handleUpdatePatient(c *gin.Context) {
	raw, err := validation.Decode(c.Request.Body)
	if err != nil {
		a.respondError(c, err)
		return
	}

	patient, err := a.patients.Update(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Patient updated", zap.String("requestId", requestID(c)), zap.String("patientId", patient.ID))
	respondData(c, http.StatusOK, patient)
}

func (a *API) handleDeletePatient(c *gin.Context) {
	id := c.Param("id")
	if err := a.patients.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Info("Patient deleted", zap.String("requestId", requestID(c)), zap.String("patientId", id))
	c.Status(http.StatusNoContent)
}
