package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicnotes/internal/domain"
)

type PatientRepository struct {
	db      *sql.DB
	dialect Dialect
}

const patientColumns = `id, name, date_of_birth, medical_record_number, created_at, updated_at`

func (r *PatientRepository) Insert(ctx context.Context, p domain.Patient) error {
	_, err := r.db.ExecContext(ctx, rebind(r.dialect, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.Name, p.DateOfBirth, p.MedicalRecordNumber, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", classify(err))
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (domain.Patient, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.dialect, `SELECT `+patientColumns+` FROM patients WHERE id = ?`), id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Patient{}, ErrNotFound
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("get patient %s: %w", id, err)
	}
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context) ([]domain.Patient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	patients := make([]domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

// Update applies the supplied fields and refreshes updated_at.
func (r *PatientRepository) Update(ctx context.Context, id string, in domain.UpdatePatientInput, now time.Time) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if in.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *in.Name)
	}
	if in.DateOfBirth != nil {
		sets = append(sets, "date_of_birth = ?")
		args = append(args, *in.DateOfBirth)
	}
	if in.MedicalRecordNumber != nil {
		sets = append(sets, "medical_record_number = ?")
		args = append(args, *in.MedicalRecordNumber)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(now), id)

	query := rebind(r.dialect, `UPDATE patients SET `+strings.Join(sets, ", ")+` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update patient %s: %w", id, classify(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patient %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the patient; voice notes and summaries go with it through the schema cascade.
func (r *PatientRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByID(ctx, r.db, r.dialect, "patients", id)
}

func (r *PatientRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, r.dialect, `SELECT 1 FROM patients WHERE id = ?`, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (domain.Patient, error) {
	var (
		p                    domain.Patient
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.MedicalRecordNumber, &createdAt, &updatedAt); err != nil {
		return domain.Patient{}, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Patient{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Patient{}, err
	}
	return p, nil
}

func deleteByID(ctx context.Context, db *sql.DB, d Dialect, table, id string) (int64, error) {
	res, err := db.ExecContext(ctx, rebind(d, `DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return affected, nil
}

func exists(ctx context.Context, db *sql.DB, d Dialect, query string, args ...any) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, rebind(d, query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return true, nil
}
