package domain

import "time"

type Patient struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	DateOfBirth         string    `json:"dateOfBirth"`
	MedicalRecordNumber string    `json:"medicalRecordNumber"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type VoiceNote struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patientId"`
	Title      string    `json:"title"`
	Duration   int64     `json:"duration"`
	RecordedAt string    `json:"recordedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Summary struct {
	ID          string    `json:"id"`
	VoiceNoteID string    `json:"voiceNoteId"`
	Content     string    `json:"content"`
	KeyPoints   []string  `json:"keyPoints"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SummaryDetail is a Summary joined with the voice note it was derived from.
type SummaryDetail struct {
	Summary
	VoiceNoteTitle string `json:"voiceNoteTitle"`
	PatientID      string `json:"patientId"`
}

type CreatePatientInput struct {
	Name                string
	DateOfBirth         string
	MedicalRecordNumber string
}

// UpdatePatientInput holds the supplied fields only; nil means "leave unchanged".
type UpdatePatientInput struct {
	Name                *string
	DateOfBirth         *string
	MedicalRecordNumber *string
}

func (u UpdatePatientInput) Empty() bool {
	return u.Name == nil && u.DateOfBirth == nil && u.MedicalRecordNumber == nil
}

type CreateVoiceNoteInput struct {
	PatientID  string
	Title      string
	Duration   int64
	RecordedAt string
}

type CreateSummaryInput struct {
	VoiceNoteID string
	Content     string
	KeyPoints   []string
}

type VoiceNoteFilter struct {
	PatientID string
}
