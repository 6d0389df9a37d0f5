package services

import (
	"context"
	"fmt"
	"time"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/pipeline"
	"clinicnotes/internal/validation"
)

const (
	msgSummaryNotFound = "Summary not found"
	msgSummaryExists   = "Summary already exists for this voice note"
)

type SummaryRepository interface {
	Insert(ctx context.Context, s domain.Summary) error
	GetByID(ctx context.Context, id string) (domain.SummaryDetail, error)
	List(ctx context.Context) ([]domain.SummaryDetail, error)
	Delete(ctx context.Context, id string) (int64, error)
	ExistsByVoiceNoteID(ctx context.Context, voiceNoteID string) (bool, error)
}

type SummaryService struct {
	repo       SummaryRepository
	voiceNotes VoiceNoteRepository
	patients   PatientRepository
	runner     *pipeline.Runner
}

func NewSummaryService(repo SummaryRepository, voiceNotes VoiceNoteRepository, patients PatientRepository, runner *pipeline.Runner) *SummaryService {
	return &SummaryService{repo: repo, voiceNotes: voiceNotes, patients: patients, runner: runner}
}

func (s *SummaryService) List(ctx context.Context) ([]domain.SummaryDetail, error) {
	return pipeline.List(ctx, s.runner, "summary.list", s.repo.List)
}

func (s *SummaryService) Get(ctx context.Context, id string) (domain.SummaryDetail, error) {
	return pipeline.Get(ctx, s.runner, "summary.get", msgSummaryNotFound, id, s.repo.GetByID)
}

func (s *SummaryService) Create(ctx context.Context, raw validation.Record) (domain.SummaryDetail, error) {
	return pipeline.Create(ctx, s.runner, pipeline.CreateSteps[domain.CreateSummaryInput, domain.SummaryDetail]{
		Operation: "summary.create",
		Validate:  validation.ParseCreateSummary,
		References: func(in domain.CreateSummaryInput) []pipeline.Reference {
			return []pipeline.Reference{{Entity: "Voice note", ID: in.VoiceNoteID, Exists: s.voiceNotes.ExistsByID}}
		},
		Singleton: func(ctx context.Context, in domain.CreateSummaryInput) (bool, error) {
			return s.repo.ExistsByVoiceNoteID(ctx, in.VoiceNoteID)
		},
		SingletonMessage: msgSummaryExists,
		Insert: func(ctx context.Context, id string, now time.Time, in domain.CreateSummaryInput) error {
			return s.repo.Insert(ctx, domain.Summary{
				ID:          id,
				VoiceNoteID: in.VoiceNoteID,
				Content:     in.Content,
				KeyPoints:   in.KeyPoints,
				CreatedAt:   now,
			})
		},
		Reload:          s.repo.GetByID,
		ConflictMessage: msgSummaryExists,
	}, raw)
}

func (s *SummaryService) Delete(ctx context.Context, id string) error {
	return pipeline.Delete(ctx, s.runner, "summary.delete", msgSummaryNotFound, id, s.repo.Delete)
}

// SummaryDocument is everything a rendered summary report shows.
type SummaryDocument struct {
	Summary   domain.SummaryDetail
	VoiceNote domain.VoiceNote
	Patient   domain.Patient
}

// Document loads a summary with its voice note and patient for rendering.
func (s *SummaryService) Document(ctx context.Context, id string) (SummaryDocument, error) {
	return pipeline.Get(ctx, s.runner, "summary.document", msgSummaryNotFound, id,
		func(ctx context.Context, id string) (SummaryDocument, error) {
			summary, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return SummaryDocument{}, err
			}
			note, err := s.voiceNotes.GetByID(ctx, summary.VoiceNoteID)
			if err != nil {
				return SummaryDocument{}, fmt.Errorf("load voice note %s: %w", summary.VoiceNoteID, err)
			}
			patient, err := s.patients.GetByID(ctx, summary.PatientID)
			if err != nil {
				return SummaryDocument{}, fmt.Errorf("load patient %s: %w", summary.PatientID, err)
			}
			return SummaryDocument{Summary: summary, VoiceNote: note, Patient: patient}, nil
		})
}
