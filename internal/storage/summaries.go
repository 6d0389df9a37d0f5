package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"clinicnotes/internal/domain"
)

type SummaryRepository struct {
	db      *sql.DB
	dialect Dialect
}

const summaryDetailQuery = `
	SELECT s.id, s.voice_note_id, s.content, s.key_points, s.created_at, v.title, v.patient_id
	FROM summaries s
	JOIN voice_notes v ON s.voice_note_id = v.id`

func (r *SummaryRepository) Insert(ctx context.Context, s domain.Summary) error {
	keyPoints, err := json.Marshal(s.KeyPoints)
	if err != nil {
		return fmt.Errorf("encode key points: %w", err)
	}

	_, err = r.db.ExecContext(ctx, rebind(r.dialect, `
		INSERT INTO summaries (id, voice_note_id, content, key_points, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		s.ID, s.VoiceNoteID, s.Content, string(keyPoints), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", classify(err))
	}
	return nil
}

// GetByID returns the summary joined with its voice note title and patient.
func (r *SummaryRepository) GetByID(ctx context.Context, id string) (domain.SummaryDetail, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.dialect, summaryDetailQuery+` WHERE s.id = ?`), id)
	d, err := scanSummaryDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SummaryDetail{}, ErrNotFound
	}
	if err != nil {
		return domain.SummaryDetail{}, fmt.Errorf("get summary %s: %w", id, err)
	}
	return d, nil
}

func (r *SummaryRepository) List(ctx context.Context) ([]domain.SummaryDetail, error) {
	rows, err := r.db.QueryContext(ctx, summaryDetailQuery+` ORDER BY s.created_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.SummaryDetail, 0)
	for rows.Next() {
		d, err := scanSummaryDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return summaries, nil
}

func (r *SummaryRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByID(ctx, r.db, r.dialect, "summaries", id)
}

func (r *SummaryRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, r.dialect, `SELECT 1 FROM summaries WHERE id = ?`, id)
}

func (r *SummaryRepository) ExistsByVoiceNoteID(ctx context.Context, voiceNoteID string) (bool, error) {
	return exists(ctx, r.db, r.dialect, `SELECT 1 FROM summaries WHERE voice_note_id = ?`, voiceNoteID)
}

func scanSummaryDetail(row rowScanner) (domain.SummaryDetail, error) {
	var (
		d         domain.SummaryDetail
		keyPoints string
		createdAt string
	)
	if err := row.Scan(&d.ID, &d.VoiceNoteID, &d.Content, &keyPoints, &createdAt, &d.VoiceNoteTitle, &d.PatientID); err != nil {
		return domain.SummaryDetail{}, err
	}
	if err := json.Unmarshal([]byte(keyPoints), &d.KeyPoints); err != nil {
		return domain.SummaryDetail{}, fmt.Errorf("decode key points: %w", err)
	}
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.SummaryDetail{}, err
	}
	return d, nil
}
