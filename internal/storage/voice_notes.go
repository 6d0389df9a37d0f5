package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinicnotes/internal/domain"
)

type VoiceNoteRepository struct {
	db      *sql.DB
	dialect Dialect
}

const voiceNoteColumns = `id, patient_id, title, duration, recorded_at, created_at`

// Insert stores recorded_at in the fixed-width timestamp layout so text ordering
// matches chronological ordering.
func (r *VoiceNoteRepository) Insert(ctx context.Context, n domain.VoiceNote) error {
	recordedAt, err := parseTime(n.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert voice note: %w", err)
	}
	_, err = r.db.ExecContext(ctx, rebind(r.dialect, `
		INSERT INTO voice_notes (`+voiceNoteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`),
		n.ID, n.PatientID, n.Title, n.Duration, formatTime(recordedAt), formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert voice note: %w", classify(err))
	}
	return nil
}

func (r *VoiceNoteRepository) GetByID(ctx context.Context, id string) (domain.VoiceNote, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.dialect, `SELECT `+voiceNoteColumns+` FROM voice_notes WHERE id = ?`), id)
	n, err := scanVoiceNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VoiceNote{}, ErrNotFound
	}
	if err != nil {
		return domain.VoiceNote{}, fmt.Errorf("get voice note %s: %w", id, err)
	}
	return n, nil
}

// List orders by recording time, newest first, optionally restricted to one patient.
func (r *VoiceNoteRepository) List(ctx context.Context, filter domain.VoiceNoteFilter) ([]domain.VoiceNote, error) {
	query := `SELECT ` + voiceNoteColumns + ` FROM voice_notes`
	var args []any
	if filter.PatientID != "" {
		query += ` WHERE patient_id = ?`
		args = append(args, filter.PatientID)
	}
	query += ` ORDER BY recorded_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, query), args...)
	if err != nil {
		return nil, fmt.Errorf("list voice notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.VoiceNote, 0)
	for rows.Next() {
		n, err := scanVoiceNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice notes: %w", err)
	}
	return notes, nil
}

func (r *VoiceNoteRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByID(ctx, r.db, r.dialect, "voice_notes", id)
}

func (r *VoiceNoteRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, r.dialect, `SELECT 1 FROM voice_notes WHERE id = ?`, id)
}

func scanVoiceNote(row rowScanner) (domain.VoiceNote, error) {
	var (
		n         domain.VoiceNote
		createdAt string
	)
	if err := row.Scan(&n.ID, &n.PatientID, &n.Title, &n.Duration, &n.RecordedAt, &createdAt); err != nil {
		return domain.VoiceNote{}, err
	}
	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.VoiceNote{}, err
	}
	return n, nil
}
