package services

import (
	"context"
	"time"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/pipeline"
	"clinicnotes/internal/validation"
)

const msgVoiceNoteNotFound = "Voice note not found"

type VoiceNoteRepository interface {
	Insert(ctx context.Context, n domain.VoiceNote) error
	GetByID(ctx context.Context, id string) (domain.VoiceNote, error)
	List(ctx context.Context, filter domain.VoiceNoteFilter) ([]domain.VoiceNote, error)
	Delete(ctx context.Context, id string) (int64, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// Existence is the reference check a child resource needs from its parent.
type Existence interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type VoiceNoteService struct {
	repo     VoiceNoteRepository
	patients Existence
	runner   *pipeline.Runner
}

func NewVoiceNoteService(repo VoiceNoteRepository, patients Existence, runner *pipeline.Runner) *VoiceNoteService {
	return &VoiceNoteService{repo: repo, patients: patients, runner: runner}
}

func (s *VoiceNoteService) List(ctx context.Context, filter domain.VoiceNoteFilter) ([]domain.VoiceNote, error) {
	return pipeline.List(ctx, s.runner, "voice_note.list", func(ctx context.Context) ([]domain.VoiceNote, error) {
		return s.repo.List(ctx, filter)
	})
}

func (s *VoiceNoteService) Get(ctx context.Context, id string) (domain.VoiceNote, error) {
	return pipeline.Get(ctx, s.runner, "voice_note.get", msgVoiceNoteNotFound, id, s.repo.GetByID)
}

func (s *VoiceNoteService) Create(ctx context.Context, raw validation.Record) (domain.VoiceNote, error) {
	return pipeline.Create(ctx, s.runner, pipeline.CreateSteps[domain.CreateVoiceNoteInput, domain.VoiceNote]{
		Operation: "voice_note.create",
		Validate:  validation.ParseCreateVoiceNote,
		References: func(in domain.CreateVoiceNoteInput) []pipeline.Reference {
			return []pipeline.Reference{{Entity: "Patient", ID: in.PatientID, Exists: s.patients.ExistsByID}}
		},
		Insert: func(ctx context.Context, id string, now time.Time, in domain.CreateVoiceNoteInput) error {
			return s.repo.Insert(ctx, domain.VoiceNote{
				ID:         id,
				PatientID:  in.PatientID,
				Title:      in.Title,
				Duration:   in.Duration,
				RecordedAt: in.RecordedAt,
				CreatedAt:  now,
			})
		},
		Reload:          s.repo.GetByID,
		ConflictMessage: "Voice note already exists",
	}, raw)
}

func (s *VoiceNoteService) Delete(ctx context.Context, id string) error {
	return pipeline.Delete(ctx, s.runner, "voice_note.delete", msgVoiceNoteNotFound, id, s.repo.Delete)
}
