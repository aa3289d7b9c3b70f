package persistence

import (
	"database/sql"
	"time"

	"github.com/voxpage/voxpage/internal/pkg/api"
)

type (

	// User table
	User struct {
		ID         int64
		Username   string
		Password   string
		Email      sql.NullString
		DarkMode   bool
		TTSCredits int32
		Created    time.Time
	}

	// File - uploaded_files table.
	// UserID is api.GuestID for anonymous uploads
	File struct {
		ID            int64
		UserID        int64
		Path          string
		Name          string
		Type          string
		ExtractedText sql.NullString
		Processed     bool
		Uploaded      time.Time
	}

	// Conversion - tts_conversions table
	Conversion struct {
		ID           int64
		UserID       int64
		SourceFileID sql.NullInt64
		Text         string
		AudioPath    string
		Voice        api.VoiceSettings
		Language     string
		Created      time.Time
	}

	// Preset - text_presets table
	Preset struct {
		ID      int64
		UserID  int64
		Name    string
		Content string
		Created time.Time
	}
)
