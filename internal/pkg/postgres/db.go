package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxpage/voxpage/internal/pkg/persistence"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// Migrate makes sure required tables exist
func (db *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users(
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			email TEXT,
			dark_mode BOOLEAN NOT NULL DEFAULT FALSE,
			tts_credits INTEGER NOT NULL DEFAULT 100,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		`CREATE TABLE IF NOT EXISTS uploaded_files(
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL DEFAULT 0,
			file_path TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			extracted_text TEXT,
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			upload_date TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		`CREATE TABLE IF NOT EXISTS tts_conversions(
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL DEFAULT 0,
			source_file_id BIGINT REFERENCES uploaded_files(id),
			text_content TEXT NOT NULL,
			audio_file_path TEXT NOT NULL,
			voice_settings JSONB NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		`CREATE TABLE IF NOT EXISTS text_presets(
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		`CREATE INDEX IF NOT EXISTS tts_conversions_user_created ON tts_conversions(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS uploaded_files_user_uploaded ON uploaded_files(user_id, upload_date)`,
	}
	for _, s := range stmts {
		if _, err := db.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("can't migrate: %w", err)
		}
	}
	return nil
}

// InsertUser inserts user into DB and fills the ID
func (db *DB) InsertUser(ctx context.Context, user *persistence.User) error {
	err := db.pool.QueryRow(ctx, `INSERT INTO users(username, password, email, dark_mode, tts_credits, created_at)
		VALUES($1, $2, $3, $4, $5, $6) RETURNING id`, user.Username, user.Password, user.Email,
		user.DarkMode, user.TTSCredits, user.Created).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("can't insert user: %w", err)
	}
	return nil
}

// GetUser loads user by ID, returns nil if not found
func (db *DB) GetUser(ctx context.Context, id int64) (*persistence.User, error) {
	var res persistence.User
	err := db.pool.QueryRow(ctx, `SELECT id, username, password, email, dark_mode, tts_credits, created_at
		FROM users WHERE id = $1`, id).Scan(&res.ID, &res.Username, &res.Password, &res.Email,
		&res.DarkMode, &res.TTSCredits, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load user: %w", err)
	}
	return &res, nil
}

// GetUserByUsername loads user by username, returns nil if not found
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*persistence.User, error) {
	var res persistence.User
	err := db.pool.QueryRow(ctx, `SELECT id, username, password, email, dark_mode, tts_credits, created_at
		FROM users WHERE username = $1`, username).Scan(&res.ID, &res.Username, &res.Password, &res.Email,
		&res.DarkMode, &res.TTSCredits, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load user: %w", err)
	}
	return &res, nil
}

// UpdateUserSettings changes preference fields
func (db *DB) UpdateUserSettings(ctx context.Context, user *persistence.User) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE users SET dark_mode = $2, email = $3 WHERE id = $1`,
		user.ID, user.DarkMode, user.Email)
	if err != nil {
		return fmt.Errorf("can't update user: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't update user, no record found")
	}
	return nil
}

// InsertFile inserts uploaded file data and fills the ID
func (db *DB) InsertFile(ctx context.Context, file *persistence.File) error {
	err := db.pool.QueryRow(ctx, `INSERT INTO uploaded_files(user_id, file_path, file_name, file_type,
		extracted_text, processed, upload_date)
		VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id`, file.UserID, file.Path, file.Name, file.Type,
		file.ExtractedText, file.Processed, file.Uploaded).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("can't insert uploaded file: %w", err)
	}
	return nil
}

// GetFile loads uploaded file by ID, returns nil if not found
func (db *DB) GetFile(ctx context.Context, id int64) (*persistence.File, error) {
	var res persistence.File
	err := db.pool.QueryRow(ctx, `SELECT id, user_id, file_path, file_name, file_type, extracted_text,
		processed, upload_date FROM uploaded_files WHERE id = $1`, id).Scan(&res.ID, &res.UserID,
		&res.Path, &res.Name, &res.Type, &res.ExtractedText, &res.Processed, &res.Uploaded)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load uploaded file: %w", err)
	}
	return &res, nil
}

// ListFilesByUser loads files of the owner, newest first
func (db *DB) ListFilesByUser(ctx context.Context, userID int64) ([]*persistence.File, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, user_id, file_path, file_name, file_type, extracted_text,
		processed, upload_date FROM uploaded_files WHERE user_id = $1 ORDER BY upload_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("can't select uploaded files: %w", err)
	}
	defer rows.Close()
	res := []*persistence.File{}
	for rows.Next() {
		var f persistence.File
		if err := rows.Scan(&f.ID, &f.UserID, &f.Path, &f.Name, &f.Type, &f.ExtractedText,
			&f.Processed, &f.Uploaded); err != nil {
			return nil, fmt.Errorf("can't retrieve uploaded files: %w", err)
		}
		res = append(res, &f)
	}
	return res, nil
}

// DeleteFile removes the file row. Missing row is not an error
func (db *DB) DeleteFile(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM uploaded_files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("can't delete uploaded file %d: %w", id, err)
	}
	return nil
}

// InsertConversion inserts conversion data and fills the ID
func (db *DB) InsertConversion(ctx context.Context, conv *persistence.Conversion) error {
	voice, err := json.Marshal(conv.Voice)
	if err != nil {
		return fmt.Errorf("can't marshal voice settings: %w", err)
	}
	err = db.pool.QueryRow(ctx, `INSERT INTO tts_conversions(user_id, source_file_id, text_content,
		audio_file_path, voice_settings, language, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id`, conv.UserID, conv.SourceFileID, conv.Text,
		conv.AudioPath, voice, conv.Language, conv.Created).Scan(&conv.ID)
	if err != nil {
		return fmt.Errorf("can't insert conversion: %w", err)
	}
	return nil
}

// GetConversion loads conversion by ID, returns nil if not found
func (db *DB) GetConversion(ctx context.Context, id int64) (*persistence.Conversion, error) {
	var res persistence.Conversion
	var voice []byte
	err := db.pool.QueryRow(ctx, `SELECT id, user_id, source_file_id, text_content, audio_file_path,
		voice_settings, language, created_at FROM tts_conversions WHERE id = $1`, id).Scan(&res.ID,
		&res.UserID, &res.SourceFileID, &res.Text, &res.AudioPath, &voice, &res.Language, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load conversion: %w", err)
	}
	if err := json.Unmarshal(voice, &res.Voice); err != nil {
		return nil, fmt.Errorf("can't unmarshal voice settings: %w", err)
	}
	return &res, nil
}

// ListConversionsByUser loads conversions of the owner, newest first
func (db *DB) ListConversionsByUser(ctx context.Context, userID int64) ([]*persistence.Conversion, error) {
	return db.listConversions(ctx, `SELECT id, user_id, source_file_id, text_content, audio_file_path,
		voice_settings, language, created_at FROM tts_conversions WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

// ListConversionsBySource loads owner's conversions referencing the uploaded file
func (db *DB) ListConversionsBySource(ctx context.Context, fileID, userID int64) ([]*persistence.Conversion, error) {
	return db.listConversions(ctx, `SELECT id, user_id, source_file_id, text_content, audio_file_path,
		voice_settings, language, created_at FROM tts_conversions WHERE source_file_id = $1 AND user_id = $2`,
		fileID, userID)
}

func (db *DB) listConversions(ctx context.Context, sql string, args ...any) ([]*persistence.Conversion, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select conversions: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Conversion{}
	for rows.Next() {
		var c persistence.Conversion
		var voice []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.SourceFileID, &c.Text, &c.AudioPath, &voice,
			&c.Language, &c.Created); err != nil {
			return nil, fmt.Errorf("can't retrieve conversions: %w", err)
		}
		if err := json.Unmarshal(voice, &c.Voice); err != nil {
			return nil, fmt.Errorf("can't unmarshal voice settings: %w", err)
		}
		res = append(res, &c)
	}
	return res, nil
}

// CountConversionsSince counts owner's conversions created at or after the instant
func (db *DB) CountConversionsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var res int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tts_conversions WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&res)
	if err != nil {
		return 0, fmt.Errorf("can't count conversions: %w", err)
	}
	return res, nil
}

// DeleteConversion removes the conversion row. Missing row is not an error
func (db *DB) DeleteConversion(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM tts_conversions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("can't delete conversion %d: %w", id, err)
	}
	return nil
}

// InsertPreset inserts preset data and fills the ID
func (db *DB) InsertPreset(ctx context.Context, preset *persistence.Preset) error {
	err := db.pool.QueryRow(ctx, `INSERT INTO text_presets(user_id, name, content, created_at)
		VALUES($1, $2, $3, $4) RETURNING id`, preset.UserID, preset.Name, preset.Content,
		preset.Created).Scan(&preset.ID)
	if err != nil {
		return fmt.Errorf("can't insert preset: %w", err)
	}
	return nil
}

// GetPreset loads preset by ID, returns nil if not found
func (db *DB) GetPreset(ctx context.Context, id int64) (*persistence.Preset, error) {
	var res persistence.Preset
	err := db.pool.QueryRow(ctx, `SELECT id, user_id, name, content, created_at FROM text_presets
		WHERE id = $1`, id).Scan(&res.ID, &res.UserID, &res.Name, &res.Content, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load preset: %w", err)
	}
	return &res, nil
}

// ListPresetsByUser loads presets of the owner, newest first
func (db *DB) ListPresetsByUser(ctx context.Context, userID int64) ([]*persistence.Preset, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, user_id, name, content, created_at FROM text_presets
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("can't select presets: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Preset{}
	for rows.Next() {
		var p persistence.Preset
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Content, &p.Created); err != nil {
			return nil, fmt.Errorf("can't retrieve presets: %w", err)
		}
		res = append(res, &p)
	}
	return res, nil
}

// UpdatePreset changes name and content
func (db *DB) UpdatePreset(ctx context.Context, preset *persistence.Preset) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE text_presets SET name = $2, content = $3 WHERE id = $1`,
		preset.ID, preset.Name, preset.Content)
	if err != nil {
		return fmt.Errorf("can't update preset: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't update preset, no record found")
	}
	return nil
}

// DeletePreset removes the preset row
func (db *DB) DeletePreset(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM text_presets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("can't delete preset %d: %w", id, err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'tts_conversions')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
