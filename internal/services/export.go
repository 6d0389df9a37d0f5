package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/pipeline"
)

const patientSheet = "Patients"

var patientExportHeader = []string{
	"ID",
	"Name",
	"Date of Birth",
	"Medical Record Number",
	"Voice Notes",
	"Created At",
	"Updated At",
}

var patientExportWidths = []float64{38, 30, 14, 24, 12, 26, 26}

// ExportService builds spreadsheet exports of the patient roster.
type ExportService struct {
	patients   PatientRepository
	voiceNotes VoiceNoteRepository
	runner     *pipeline.Runner
}

func NewExportService(patients PatientRepository, voiceNotes VoiceNoteRepository, runner *pipeline.Runner) *ExportService {
	return &ExportService{patients: patients, voiceNotes: voiceNotes, runner: runner}
}

// WritePatients writes an .xlsx workbook with one row per patient, newest first.
func (s *ExportService) WritePatients(ctx context.Context, w io.Writer) error {
	patients, err := pipeline.List(ctx, s.runner, "patient.export", s.patients.List)
	if err != nil {
		return err
	}
	notes, err := pipeline.List(ctx, s.runner, "voice_note.export", func(ctx context.Context) ([]domain.VoiceNote, error) {
		return s.voiceNotes.List(ctx, domain.VoiceNoteFilter{})
	})
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(patients))
	for _, n := range notes {
		counts[n.PatientID]++
	}

	f, err := buildPatientWorkbook(patients, counts)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildPatientWorkbook(patients []domain.Patient, noteCounts map[string]int) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", patientSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range patientExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header coordinates: %w", err)
		}
		if err := f.SetCellValue(patientSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(patientSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(patientSheet, name, name, patientExportWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, p := range patients {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		row := []any{
			p.ID,
			p.Name,
			p.DateOfBirth,
			p.MedicalRecordNumber,
			noteCounts[p.ID],
			p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if err := f.SetSheetRow(patientSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(patientSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	return f, nil
}
