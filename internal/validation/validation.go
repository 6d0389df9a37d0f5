// Package validation turns raw request bodies into typed, checked inputs.
// It never touches storage.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"clinicnotes/internal/domain"
)

// Record is a decoded JSON object whose numbers are kept as json.Number.
type Record map[string]any

type Operation string

const (
	CreatePatient   Operation = "CreatePatient"
	UpdatePatient   Operation = "UpdatePatient"
	CreateVoiceNote Operation = "CreateVoiceNote"
	CreateSummary   Operation = "CreateSummary"
)

// Error lists every violated field of one input.
type Error struct {
	Fields []domain.FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Decode reads a JSON object. An empty body decodes to an empty Record.
func Decode(r io.Reader) (Record, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &Error{Fields: []domain.FieldError{{Message: "Malformed JSON body"}}}
	}
	if dec.More() {
		return nil, &Error{Fields: []domain.FieldError{{Message: "Malformed JSON body"}}}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &Error{Fields: []domain.FieldError{{Message: "Expected object"}}}
	}
	return Record(obj), nil
}

// Validate dispatches on op and returns the matching domain input struct.
func Validate(op Operation, raw Record) (any, error) {
	switch op {
	case CreatePatient:
		return ParseCreatePatient(raw)
	case UpdatePatient:
		return ParseUpdatePatient(raw)
	case CreateVoiceNote:
		return ParseCreateVoiceNote(raw)
	case CreateSummary:
		return ParseCreateSummary(raw)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func ParseCreatePatient(raw Record) (domain.CreatePatientInput, error) {
	c := newChecker(raw)
	name := c.text("name", true, nameRules)
	dob := c.date("dateOfBirth", true)
	mrn := c.text("medicalRecordNumber", true, mrnRules)
	if err := c.err(); err != nil {
		return domain.CreatePatientInput{}, err
	}
	return domain.CreatePatientInput{
		Name:                *name,
		DateOfBirth:         *dob,
		MedicalRecordNumber: *mrn,
	}, nil
}

func ParseUpdatePatient(raw Record) (domain.UpdatePatientInput, error) {
	c := newChecker(raw)
	in := domain.UpdatePatientInput{
		Name:                c.text("name", false, nameRules),
		DateOfBirth:         c.date("dateOfBirth", false),
		MedicalRecordNumber: c.text("medicalRecordNumber", false, mrnRules),
	}
	if err := c.err(); err != nil {
		return domain.UpdatePatientInput{}, err
	}
	return in, nil
}

func ParseCreateVoiceNote(raw Record) (domain.CreateVoiceNoteInput, error) {
	c := newChecker(raw)
	patientID := c.text("patientId", true, "uuid")
	title := c.text("title", true, titleRules)
	duration := c.positiveInt("duration")
	recordedAt := c.dateTime("recordedAt")
	if err := c.err(); err != nil {
		return domain.CreateVoiceNoteInput{}, err
	}
	return domain.CreateVoiceNoteInput{
		PatientID:  *patientID,
		Title:      *title,
		Duration:   *duration,
		RecordedAt: *recordedAt,
	}, nil
}

func ParseCreateSummary(raw Record) (domain.CreateSummaryInput, error) {
	c := newChecker(raw)
	voiceNoteID := c.text("voiceNoteId", true, "uuid")
	content := c.text("content", true, "min=1")
	keyPoints := c.stringList("keyPoints", 1)
	if err := c.err(); err != nil {
		return domain.CreateSummaryInput{}, err
	}
	return domain.CreateSummaryInput{
		VoiceNoteID: *voiceNoteID,
		Content:     *content,
		KeyPoints:   keyPoints,
	}, nil
}

// AsError extracts the field list from a validation failure.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
