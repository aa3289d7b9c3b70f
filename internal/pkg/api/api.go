package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// form parameter names
const (
	PrmFile        = "file"
	PrmOCRSettings = "ocrSettings"
)

// GuestID is the sentinel owner id shared by all unauthenticated callers
const GuestID = int64(0)

// file type tags stored with every uploaded file
const (
	FileTypePDF  = "PDF"
	FileTypeDOCX = "DOCX"
	FileTypeIMG  = "IMG"
	FileTypeTXT  = "TXT"
)

// FileTypeFromMime maps a declared media type to the internal file type tag.
// The second value is false for unsupported types.
func FileTypeFromMime(mime string) (string, bool) {
	switch {
	case mime == "application/pdf":
		return FileTypePDF, true
	case mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FileTypeDOCX, true
	case mime == "image/jpeg" || mime == "image/png":
		return FileTypeIMG, true
	case mime == "text/plain":
		return FileTypeTXT, true
	}
	return "", false
}

// VoiceSettings keeps requested voice parameters.
// They are validated and persisted with every conversion, but the synthesis
// backend currently honors only the language - speed, pitch and voice type
// are stored for the record.
type VoiceSettings struct {
	Speed     float64 `json:"speed"`
	Pitch     float64 `json:"pitch"`
	VoiceType string  `json:"voiceType"`
}

// DefaultVoiceSettings returns settings used when a request provides none
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Speed: 1.0, Pitch: 0.5, VoiceType: "male1"}
}

var voiceTypes = map[string]bool{"male1": true, "female1": true, "male2": true, "female2": true}

// Validate checks value ranges
func (v VoiceSettings) Validate() error {
	if v.Speed < 0.5 || v.Speed > 1.5 {
		return fmt.Errorf("speed out of range [0.5, 1.5]: %.2f", v.Speed)
	}
	if v.Pitch < 0.1 || v.Pitch > 0.9 {
		return fmt.Errorf("pitch out of range [0.1, 0.9]: %.2f", v.Pitch)
	}
	if !voiceTypes[v.VoiceType] {
		return fmt.Errorf("unknown voice type '%s'", v.VoiceType)
	}
	return nil
}

// OCRSettings keeps recognition parameters for image uploads
type OCRSettings struct {
	Mode     int    `json:"mode"`
	Engine   int    `json:"engine"`
	Language string `json:"language"`
}

// DefaultOCRSettings returns automatic segmentation, default engine, English
func DefaultOCRSettings() OCRSettings {
	return OCRSettings{Mode: 3, Engine: 3, Language: "eng"}
}

// Validate checks value ranges
func (o OCRSettings) Validate() error {
	if o.Mode < 0 || o.Mode > 13 {
		return fmt.Errorf("mode out of range [0, 13]: %d", o.Mode)
	}
	if o.Engine < 0 || o.Engine > 3 {
		return fmt.Errorf("engine out of range [0, 3]: %d", o.Engine)
	}
	if o.Language == "" {
		return fmt.Errorf("no language")
	}
	return nil
}

// ConvertInput is the request body of the convert operation.
// VoiceSettings stays raw so absent fields can be told apart
// from explicitly provided zero values
type ConvertInput struct {
	Text          string          `json:"text"`
	VoiceSettings json.RawMessage `json:"voiceSettings,omitempty"`
	Language      string          `json:"language,omitempty"`
	FileID        int64           `json:"fileId,omitempty"`
}

// UploadResult is returned after a successful upload + extraction
type UploadResult struct {
	ID            int64     `json:"id"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	ExtractedText string    `json:"extractedText"`
	UploadDate    time.Time `json:"uploadDate"`
}

// ConvertResult is returned after a successful conversion
type ConvertResult struct {
	ID          int64     `json:"id"`
	TextContent string    `json:"textContent"`
	AudioURL    string    `json:"audioUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FileInfo is a history listing item for uploads
type FileInfo struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	UploadDate time.Time `json:"uploadDate"`
}

// ConversionInfo is a history listing item for conversions
type ConversionInfo struct {
	ID           int64     `json:"id"`
	TextContent  string    `json:"textContent"`
	AudioURL     string    `json:"audioUrl"`
	Language     string    `json:"language"`
	SourceFileID int64     `json:"sourceFileId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CountResult reports today's guest usage.
// Limit is the literal string "unlimited" for authenticated callers
// or the configured integer for guests.
type CountResult struct {
	Count int `json:"count"`
	Limit any `json:"limit"`
}

// PresetInput is the request body for preset create/update
type PresetInput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// PresetInfo is a saved text preset
type PresetInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials is the request body for register/login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SettingsInput is the request body for the settings update
type SettingsInput struct {
	DarkMode bool   `json:"darkMode"`
	Email    string `json:"email,omitempty"`
}

// UserInfo describes the account, Token is filled by register/login only.
// TTSCredits is a displayed balance, no operation decrements it.
type UserInfo struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	DarkMode   bool      `json:"darkMode"`
	TTSCredits int32     `json:"ttsCredits"`
	CreatedAt  time.Time `json:"createdAt"`
	Token      string    `json:"token,omitempty"`
}
