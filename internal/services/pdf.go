package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// RenderSummary writes a one-document report of the summary to w.
func (s *PDFService) RenderSummary(w io.Writer, doc SummaryDocument) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr(fmt.Sprintf("Summary %s", doc.Summary.ID)), false)
	pdf.SetAuthor("clinicnotes", false)
	pdf.AddPage()

	title := doc.VoiceNote.Title
	if strings.TrimSpace(title) == "" {
		title = "Clinical summary"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		fmt.Sprintf("Patient: %s (MRN %s)", doc.Patient.Name, doc.Patient.MedicalRecordNumber),
		fmt.Sprintf("Date of birth: %s", doc.Patient.DateOfBirth),
		fmt.Sprintf("Recorded: %s (%s)", doc.VoiceNote.RecordedAt, formatDuration(doc.VoiceNote.Duration)),
		fmt.Sprintf("Summary created: %s", doc.Summary.CreatedAt.UTC().Format("2006-01-02 15:04 MST")),
	} {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	s.writeSection(pdf, tr, "Summary", strings.Split(doc.Summary.Content, "\n"), false)
	pdf.Ln(8)
	s.writeSection(pdf, tr, "Key points", doc.Summary.KeyPoints, true)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (s *PDFService) writeSection(pdf *gofpdf.Fpdf, tr func(string) string, title string, lines []string, bullet bool) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)

	written := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		text := line
		if bullet {
			text = fmt.Sprintf("• %s", line)
		}
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
		written++
	}
	if written == 0 {
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
	}
}

func formatDuration(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
