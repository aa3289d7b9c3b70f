package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/voxpage/voxpage/internal/pkg/api"
	"github.com/voxpage/voxpage/internal/pkg/auth"
	"github.com/voxpage/voxpage/internal/pkg/messages"
	"github.com/voxpage/voxpage/internal/pkg/persistence"
	"github.com/voxpage/voxpage/internal/pkg/quota"
	"github.com/voxpage/voxpage/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB provides persistence functionality
type DB interface {
	InsertUser(ctx context.Context, user *persistence.User) error
	GetUser(ctx context.Context, id int64) (*persistence.User, error)
	GetUserByUsername(ctx context.Context, username string) (*persistence.User, error)
	UpdateUserSettings(ctx context.Context, user *persistence.User) error

	InsertFile(ctx context.Context, file *persistence.File) error
	ListFilesByUser(ctx context.Context, userID int64) ([]*persistence.File, error)

	InsertConversion(ctx context.Context, conv *persistence.Conversion) error
	ListConversionsByUser(ctx context.Context, userID int64) ([]*persistence.Conversion, error)

	InsertPreset(ctx context.Context, preset *persistence.Preset) error
	GetPreset(ctx context.Context, id int64) (*persistence.Preset, error)
	ListPresetsByUser(ctx context.Context, userID int64) ([]*persistence.Preset, error)
	UpdatePreset(ctx context.Context, preset *persistence.Preset) error
	DeletePreset(ctx context.Context, id int64) error
}

// Extractor turns stored files into text
type Extractor interface {
	Extract(ctx context.Context, path, fileType string, ocr *api.OCRSettings) (string, error)
}

// Synthesizer turns text into audio bytes
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string, voice api.VoiceSettings) ([]byte, error)
}

// FileStorage keeps uploaded or generated files
type FileStorage interface {
	SaveFile(ctx context.Context, name string, r io.Reader) error
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
	Path(name string) (string, error)
}

// Quota gates guest conversions
type Quota interface {
	Check(ctx context.Context, userID int64) error
	Usage(ctx context.Context) (int, error)
	Limit() int
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Sessions issues and validates bearer tokens
type Sessions interface {
	NewToken(userID int64) (string, error)
	Parse(token string) (int64, error)
}

// Data keeps data required for service work
type Data struct {
	Port        int
	MaxFileSize int64
	DB          DB
	Extractor   Extractor
	Synthesizer Synthesizer
	Uploads     FileStorage
	Audio       FileStorage
	Quota       Quota
	MsgSender   MsgSender
	Sessions    Sessions
}

const (
	audioURLPrefix = "/api/audio/"
	userIDKey      = "userID"
)

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP voxpage service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 180 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Extractor == nil {
		return errors.New("no extractor")
	}
	if data.Synthesizer == nil {
		return errors.New("no synthesizer")
	}
	if data.Uploads == nil {
		return errors.New("no uploads storage")
	}
	if data.Audio == nil {
		return errors.New("no audio storage")
	}
	if data.Quota == nil {
		return errors.New("no quota gate")
	}
	if data.MsgSender == nil {
		return errors.New("no msg sender")
	}
	if data.Sessions == nil {
		return errors.New("no sessions")
	}
	if data.MaxFileSize <= 0 {
		data.MaxFileSize = 10 << 20
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("voxpage", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/api/register", register(data))
	e.POST("/api/login", login(data))
	e.PUT("/api/user/settings", settings(data), authRequired(data))

	e.POST("/api/upload", upload(data), identify(data))
	e.POST("/api/convert", convert(data), identify(data))
	e.GET("/api/files", files(data), authRequired(data))
	e.GET("/api/conversions", conversions(data), authRequired(data))
	e.GET("/api/conversions/count", count(data), identify(data))
	e.GET("/api/audio/:filename", audio(data))

	e.POST("/api/presets", createPreset(data), authRequired(data))
	e.GET("/api/presets", listPresets(data), authRequired(data))
	e.PUT("/api/presets/:id", updatePreset(data), authRequired(data))
	e.DELETE("/api/presets/:id", deletePreset(data), authRequired(data))

	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

// identify resolves an optional bearer token, unauthenticated callers pass as guests
func identify(data *Data) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, ok := sessionUser(c, data); ok {
				c.Set(userIDKey, id)
			}
			return next(c)
		}
	}
}

func authRequired(data *Data) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := sessionUser(c, data)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			c.Set(userIDKey, id)
			return next(c)
		}
	}
}

func sessionUser(c echo.Context, data *Data) (int64, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return 0, false
	}
	id, err := data.Sessions.Parse(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		goapp.Log.Warn().Err(err).Msg("wrong token")
		return 0, false
	}
	return id, true
}

func ownerID(c echo.Context) int64 {
	if v, ok := c.Get(userIDKey).(int64); ok {
		return v
	}
	return api.GuestID
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		fh, err := c.FormFile(api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
		}
		if fh.Size > data.MaxFileSize {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("file too large, max %d bytes", data.MaxFileSize))
		}
		fileType, ok := api.FileTypeFromMime(mediaType(fh.Header.Get(echo.HeaderContentType)))
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest,
				"unsupported file type, allowed: PDF, DOCX, JPG, PNG, TXT")
		}

		var ocr *api.OCRSettings
		if fileType == api.FileTypeIMG {
			ocr = takeOCRSettings(c.FormValue(api.PrmOCRSettings))
		}

		src, err := fh.Open()
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		defer src.Close()

		storedName := storageName(fh.Filename)
		if err := data.Uploads.SaveFile(ctx, storedName, src); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		path, err := data.Uploads.Path(storedName)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		text, err := data.Extractor.Extract(ctx, path, fileType, ocr)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		file := &persistence.File{UserID: ownerID(c), Path: storedName, Name: fh.Filename,
			Type: fileType, ExtractedText: utils.ToSQLStr(text), Processed: true, Uploaded: time.Now()}
		if err := data.DB.InsertFile(ctx, file); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		return c.JSON(http.StatusCreated, api.UploadResult{ID: file.ID, FileName: file.Name,
			FileType: file.Type, ExtractedText: text, UploadDate: file.Uploaded})
	}
}

func convert(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("convert method")()
		ctx := c.Request().Context()

		var input api.ConvertInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if strings.TrimSpace(input.Text) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "text content is required")
		}
		owner := ownerID(c)
		if err := data.Quota.Check(ctx, owner); err != nil {
			if errors.Is(err, quota.ErrLimitReached) {
				return echo.NewHTTPError(http.StatusTooManyRequests,
					"Daily limit reached. Please register for unlimited conversions.")
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		voice, err := takeVoiceSettings(input.VoiceSettings)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid voice settings: "+err.Error())
		}
		if err := voice.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid voice settings: "+err.Error())
		}
		language := input.Language
		if language == "" {
			language = "en"
		}

		audioBytes, err := data.Synthesizer.Synthesize(ctx, input.Text, language, voice)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		name := audioName()
		if err := data.Audio.SaveFile(ctx, name, bytes.NewReader(audioBytes)); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		conv := &persistence.Conversion{UserID: owner, SourceFileID: utils.ToSQLInt64(input.FileID),
			Text: input.Text, AudioPath: audioURLPrefix + name, Voice: voice, Language: language,
			Created: time.Now()}
		if err := data.DB.InsertConversion(ctx, conv); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		if owner != api.GuestID {
			// completion email is best effort, caller never waits on it
			err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
				QueueMessage: amessages.QueueMessage{ID: strconv.FormatInt(conv.ID, 10)},
				Type:         amessages.InformTypeFinished, At: time.Now()}, messages.Inform)
			if err != nil {
				goapp.Log.Error().Err(err).Int64("conversion", conv.ID).Msg("can't send inform msg")
			}
		}

		return c.JSON(http.StatusCreated, api.ConvertResult{ID: conv.ID, TextContent: conv.Text,
			AudioURL: conv.AudioPath, CreatedAt: conv.Created})
	}
}

func files(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		items, err := data.DB.ListFilesByUser(c.Request().Context(), ownerID(c))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]api.FileInfo, 0, len(items))
		for _, f := range items {
			res = append(res, api.FileInfo{ID: f.ID, FileName: f.Name, FileType: f.Type,
				UploadDate: f.Uploaded})
		}
		return c.JSON(http.StatusOK, res)
	}
}

func conversions(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		items, err := data.DB.ListConversionsByUser(c.Request().Context(), ownerID(c))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]api.ConversionInfo, 0, len(items))
		for _, conv := range items {
			res = append(res, api.ConversionInfo{ID: conv.ID, TextContent: truncate(conv.Text, 100),
				AudioURL: conv.AudioPath, Language: conv.Language,
				SourceFileID: utils.FromSQLInt64OrZero(conv.SourceFileID), CreatedAt: conv.Created})
		}
		return c.JSON(http.StatusOK, res)
	}
}

func count(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if ownerID(c) != api.GuestID {
			return c.JSON(http.StatusOK, api.CountResult{Count: 0, Limit: "unlimited"})
		}
		usage, err := data.Quota.Usage(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, api.CountResult{Count: usage, Limit: data.Quota.Limit()})
	}
}

func audio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		name := c.Param("filename")
		r, err := data.Audio.LoadFile(c.Request().Context(), name)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "audio file not found")
		}
		defer r.Close()
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", name))
		return c.Stream(http.StatusOK, "audio/mpeg", r)
	}
}

func createPreset(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		var input api.PresetInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if input.Name == "" || input.Content == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "name and content are required")
		}
		preset := &persistence.Preset{UserID: ownerID(c), Name: input.Name, Content: input.Content,
			Created: time.Now()}
		if err := data.DB.InsertPreset(c.Request().Context(), preset); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusCreated, presetInfo(preset))
	}
}

func listPresets(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		items, err := data.DB.ListPresetsByUser(c.Request().Context(), ownerID(c))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]api.PresetInfo, 0, len(items))
		for _, p := range items {
			res = append(res, presetInfo(p))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func updatePreset(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		preset, err := takeOwnPreset(c, data)
		if err != nil {
			return err
		}
		var input api.PresetInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if input.Name != "" {
			preset.Name = input.Name
		}
		if input.Content != "" {
			preset.Content = input.Content
		}
		if err := data.DB.UpdatePreset(c.Request().Context(), preset); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, presetInfo(preset))
	}
}

func deletePreset(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		preset, err := takeOwnPreset(c, data)
		if err != nil {
			return err
		}
		if err := data.DB.DeletePreset(c.Request().Context(), preset.ID); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func takeOwnPreset(c echo.Context, data *Data) (*persistence.Preset, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "wrong ID")
	}
	preset, err := data.DB.GetPreset(c.Request().Context(), id)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	if preset == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "preset not found")
	}
	if preset.UserID != ownerID(c) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not authorized")
	}
	return preset, nil
}

func register(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var input api.Credentials
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if input.Username == "" || input.Password == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
		}
		existing, err := data.DB.GetUserByUsername(ctx, input.Username)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if existing != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "username already taken")
		}
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		user := &persistence.User{Username: input.Username, Password: hash, TTSCredits: 100,
			Created: time.Now()}
		if err := data.DB.InsertUser(ctx, user); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		token, err := data.Sessions.NewToken(user.ID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusCreated, userInfo(user, token))
	}
}

func login(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var input api.Credentials
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		user, err := data.DB.GetUserByUsername(ctx, input.Username)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if user == nil || !auth.CheckPassword(user.Password, input.Password) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		token, err := data.Sessions.NewToken(user.ID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, userInfo(user, token))
	}
}

func settings(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := data.DB.GetUser(ctx, ownerID(c))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		var input api.SettingsInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		user.DarkMode = input.DarkMode
		if input.Email != "" {
			user.Email = utils.ToSQLStr(input.Email)
		}
		if err := data.DB.UpdateUserSettings(ctx, user); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, userInfo(user, ""))
	}
}

// takeOCRSettings parses the optional form value.
// Wrong settings are ignored and defaults apply
func takeOCRSettings(prm string) *api.OCRSettings {
	if prm == "" {
		return nil
	}
	res := api.DefaultOCRSettings()
	if err := json.Unmarshal([]byte(prm), &res); err != nil {
		goapp.Log.Warn().Err(err).Msg("invalid ocr settings, using defaults")
		return nil
	}
	if err := res.Validate(); err != nil {
		goapp.Log.Warn().Err(err).Msg("invalid ocr settings, using defaults")
		return nil
	}
	return &res
}

// takeVoiceSettings unmarshals provided fields over defaults.
// Absent fields keep defaults, explicit values go through validation as is
func takeVoiceSettings(prm json.RawMessage) (api.VoiceSettings, error) {
	res := api.DefaultVoiceSettings()
	if len(prm) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(prm, &res); err != nil {
		return res, fmt.Errorf("can't parse voice settings: %w", err)
	}
	return res, nil
}

func mediaType(header string) string {
	res, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(res)
}

func storageName(fileName string) string {
	ext := ""
	if i := strings.LastIndex(fileName, "."); i >= 0 && utils.SupportedUploadExt(fileName[i:]) {
		ext = fileName[i:]
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.New().String(), ext)
}

func audioName() string {
	return fmt.Sprintf("%d-%s.mp3", time.Now().UnixMilli(), uuid.New().String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func presetInfo(p *persistence.Preset) api.PresetInfo {
	return api.PresetInfo{ID: p.ID, Name: p.Name, Content: p.Content, CreatedAt: p.Created}
}

func userInfo(u *persistence.User, token string) api.UserInfo {
	return api.UserInfo{ID: u.ID, Username: u.Username, Email: utils.FromSQLStr(u.Email),
		DarkMode: u.DarkMode, TTSCredits: u.TTSCredits, CreatedAt: u.Created, Token: token}
}
