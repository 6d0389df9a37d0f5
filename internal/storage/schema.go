package storage

// schema is valid for both SQLite and Postgres. Cascades live here and nowhere else.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		medical_record_number TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CONSTRAINT patients_medical_record_number_key UNIQUE (medical_record_number)
	)`,
	`CREATE TABLE IF NOT EXISTS voice_notes (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		title TEXT NOT NULL,
		duration INTEGER NOT NULL CHECK (duration > 0),
		recorded_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CONSTRAINT voice_notes_patient_id_fkey FOREIGN KEY (patient_id)
			REFERENCES patients (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		voice_note_id TEXT NOT NULL,
		content TEXT NOT NULL,
		key_points TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CONSTRAINT summaries_voice_note_id_key UNIQUE (voice_note_id),
		CONSTRAINT summaries_voice_note_id_fkey FOREIGN KEY (voice_note_id)
			REFERENCES voice_notes (id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_voice_notes_patient ON voice_notes (patient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_voice_notes_recorded_at ON voice_notes (recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON summaries (created_at)`,
}
