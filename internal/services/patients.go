package services

import (
	"context"
	"time"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/pipeline"
	"clinicnotes/internal/validation"
)

const (
	msgPatientNotFound = "Patient not found"
	msgDuplicateMRN    = "Medical record number already exists"
)

type PatientRepository interface {
	Insert(ctx context.Context, p domain.Patient) error
	GetByID(ctx context.Context, id string) (domain.Patient, error)
	List(ctx context.Context) ([]domain.Patient, error)
	Update(ctx context.Context, id string, in domain.UpdatePatientInput, now time.Time) error
	Delete(ctx context.Context, id string) (int64, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type PatientService struct {
	repo   PatientRepository
	runner *pipeline.Runner
}

func NewPatientService(repo PatientRepository, runner *pipeline.Runner) *PatientService {
	return &PatientService{repo: repo, runner: runner}
}

func (s *PatientService) List(ctx context.Context) ([]domain.Patient, error) {
	return pipeline.List(ctx, s.runner, "patient.list", s.repo.List)
}

func (s *PatientService) Get(ctx context.Context, id string) (domain.Patient, error) {
	return pipeline.Get(ctx, s.runner, "patient.get", msgPatientNotFound, id, s.repo.GetByID)
}

func (s *PatientService) Create(ctx context.Context, raw validation.Record) (domain.Patient, error) {
	return pipeline.Create(ctx, s.runner, pipeline.CreateSteps[domain.CreatePatientInput, domain.Patient]{
		Operation: "patient.create",
		Validate:  validation.ParseCreatePatient,
		Insert: func(ctx context.Context, id string, now time.Time, in domain.CreatePatientInput) error {
			return s.repo.Insert(ctx, domain.Patient{
				ID:                  id,
				Name:                in.Name,
				DateOfBirth:         in.DateOfBirth,
				MedicalRecordNumber: in.MedicalRecordNumber,
				CreatedAt:           now,
				UpdatedAt:           now,
			})
		},
		Reload:          s.repo.GetByID,
		ConflictMessage: msgDuplicateMRN,
	}, raw)
}

func (s *PatientService) Update(ctx context.Context, id string, raw validation.Record) (domain.Patient, error) {
	return pipeline.Update(ctx, s.runner, pipeline.UpdateSteps[domain.UpdatePatientInput, domain.Patient]{
		Operation:       "patient.update",
		NotFoundMessage: msgPatientNotFound,
		Validate:        validation.ParseUpdatePatient,
		Empty:           domain.UpdatePatientInput.Empty,
		Update: func(ctx context.Context, id string, now time.Time, in domain.UpdatePatientInput) error {
			return s.repo.Update(ctx, id, in, now)
		},
		Reload:          s.repo.GetByID,
		ConflictMessage: msgDuplicateMRN,
	}, id, raw)
}

// Delete removes the patient together with its voice notes and their summaries.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	return pipeline.Delete(ctx, s.runner, "patient.delete", msgPatientNotFound, id, s.repo.Delete)
}
