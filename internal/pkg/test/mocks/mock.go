package mocks

import (
	"context"
	"io"
	"time"

	ainform "github.com/airenas/async-api/pkg/inform"
	"github.com/airenas/async-api/pkg/messages"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/mock"
	"github.com/voxpage/voxpage/internal/pkg/api"
	"github.com/voxpage/voxpage/internal/pkg/persistence"
)

// Filer is file storage mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader) error {
	args := m.Called(ctx, name, r)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func (m *Filer) Path(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *Filer) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertUser(ctx context.Context, user *persistence.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *DB) GetUser(ctx context.Context, id int64) (*persistence.User, error) {
	args := m.Called(ctx, id)
	return to[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) GetUserByUsername(ctx context.Context, username string) (*persistence.User, error) {
	args := m.Called(ctx, username)
	return to[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateUserSettings(ctx context.Context, user *persistence.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *DB) InsertFile(ctx context.Context, file *persistence.File) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *DB) GetFile(ctx context.Context, id int64) (*persistence.File, error) {
	args := m.Called(ctx, id)
	return to[*persistence.File](args.Get(0)), args.Error(1)
}

func (m *DB) ListFilesByUser(ctx context.Context, userID int64) ([]*persistence.File, error) {
	args := m.Called(ctx, userID)
	return to[[]*persistence.File](args.Get(0)), args.Error(1)
}

func (m *DB) DeleteFile(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) InsertConversion(ctx context.Context, conv *persistence.Conversion) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *DB) GetConversion(ctx context.Context, id int64) (*persistence.Conversion, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Conversion](args.Get(0)), args.Error(1)
}

func (m *DB) ListConversionsByUser(ctx context.Context, userID int64) ([]*persistence.Conversion, error) {
	args := m.Called(ctx, userID)
	return to[[]*persistence.Conversion](args.Get(0)), args.Error(1)
}

func (m *DB) ListConversionsBySource(ctx context.Context, fileID, userID int64) ([]*persistence.Conversion, error) {
	args := m.Called(ctx, fileID, userID)
	return to[[]*persistence.Conversion](args.Get(0)), args.Error(1)
}

func (m *DB) CountConversionsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *DB) DeleteConversion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) InsertPreset(ctx context.Context, preset *persistence.Preset) error {
	args := m.Called(ctx, preset)
	return args.Error(0)
}

func (m *DB) GetPreset(ctx context.Context, id int64) (*persistence.Preset, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Preset](args.Get(0)), args.Error(1)
}

func (m *DB) ListPresetsByUser(ctx context.Context, userID int64) ([]*persistence.Preset, error) {
	args := m.Called(ctx, userID)
	return to[[]*persistence.Preset](args.Get(0)), args.Error(1)
}

func (m *DB) UpdatePreset(ctx context.Context, preset *persistence.Preset) error {
	args := m.Called(ctx, preset)
	return args.Error(0)
}

func (m *DB) DeletePreset(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Extractor is text extraction mock
type Extractor struct{ mock.Mock }

func (m *Extractor) Extract(ctx context.Context, path, fileType string, ocr *api.OCRSettings) (string, error) {
	args := m.Called(ctx, path, fileType, ocr)
	return args.String(0), args.Error(1)
}

// Synthesizer is speech synthesis mock
type Synthesizer struct{ mock.Mock }

func (m *Synthesizer) Synthesize(ctx context.Context, text, language string, voice api.VoiceSettings) ([]byte, error) {
	args := m.Called(ctx, text, language, voice)
	return to[[]byte](args.Get(0)), args.Error(1)
}

// Quota is guest limit gate mock
type Quota struct{ mock.Mock }

func (m *Quota) Check(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *Quota) Usage(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *Quota) Limit() int {
	args := m.Called()
	return args.Int(0)
}

// Sessions is token mock
type Sessions struct{ mock.Mock }

func (m *Sessions) NewToken(userID int64) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *Sessions) Parse(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}

// EmailMaker is email construction mock
type EmailMaker struct{ mock.Mock }

func (m *EmailMaker) Make(data *ainform.Data) (*email.Email, error) {
	args := m.Called(data)
	return to[*email.Email](args.Get(0)), args.Error(1)
}

// EmailSender is email sending mock
type EmailSender struct{ mock.Mock }

func (m *EmailSender) Send(mail *email.Email) error {
	args := m.Called(mail)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
