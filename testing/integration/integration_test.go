//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpage/voxpage/internal/pkg/api"
)

type config struct {
	apiURL     string
	dbURL      string
	httpclient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	cfg.apiURL = GetEnvOrFail("API_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.dbURL)
	WaitForOpenOrFail(tCtx, cfg.apiURL)
	waitForDB(tCtx, cfg.dbURL)

	// synthesis backend is not part of the compose, mock it
	l, ts := startMockTTS(9876)
	defer ts.Close()
	defer l.Close()

	os.Exit(m.Run())
}

func TestLive(t *testing.T) {
	t.Parallel()
	CheckCode(t, Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.apiURL, "/live", nil)), http.StatusOK)
}

func TestUpload(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "doc.txt", "text/plain", "olia text")
	resp := CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusCreated)
	var ur api.UploadResult
	Decode(t, resp, &ur)
	assert.Equal(t, "doc.txt", ur.FileName)
	assert.Equal(t, "olia text", ur.ExtractedText)
}

func TestUpload_Fail_NoFile(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "", "", "")
	CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestUpload_Fail_WrongType(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "doc.zip", "application/zip", "olia")
	CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestCount(t *testing.T) {
	t.Parallel()
	resp := CheckCode(t, Invoke(t, cfg.httpclient,
		NewRequest(t, http.MethodGet, cfg.apiURL, "/api/conversions/count", nil)), http.StatusOK)
	var cr api.CountResult
	Decode(t, resp, &cr)
	assert.EqualValues(t, 3, cr.Limit)
}

func TestRegisteredFlow(t *testing.T) {
	t.Parallel()
	name := "it-" + uuid.NewString()
	token := register(t, name, "slaptas")

	// duplicate name fails
	CheckCode(t, Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.apiURL, "/api/register",
		api.Credentials{Username: name, Password: "kitas"})), http.StatusBadRequest)

	// login
	resp := CheckCode(t, Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.apiURL, "/api/login",
		api.Credentials{Username: name, Password: "slaptas"})), http.StatusOK)
	var ui api.UserInfo
	Decode(t, resp, &ui)
	assert.NotEmpty(t, ui.Token)

	// convert
	req := withToken(NewRequest(t, http.MethodPost, cfg.apiURL, "/api/convert",
		api.ConvertInput{Text: "olia"}), token)
	resp = CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusCreated)
	var cr api.ConvertResult
	Decode(t, resp, &cr)
	assert.NotEmpty(t, cr.AudioURL)

	// generated audio downloads
	resp = CheckCode(t, Invoke(t, cfg.httpclient,
		NewRequest(t, http.MethodGet, cfg.apiURL, cr.AudioURL, nil)), http.StatusOK)
	b, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	assert.Equal(t, "mocked mp3", string(b))

	// conversion shows up in history
	resp = CheckCode(t, Invoke(t, cfg.httpclient,
		withToken(NewRequest(t, http.MethodGet, cfg.apiURL, "/api/conversions", nil), token)), http.StatusOK)
	var convs []api.ConversionInfo
	Decode(t, resp, &convs)
	require.NotEmpty(t, convs)
	assert.Equal(t, "olia", convs[0].TextContent)

	// count is unlimited for the user
	resp = CheckCode(t, Invoke(t, cfg.httpclient,
		withToken(NewRequest(t, http.MethodGet, cfg.apiURL, "/api/conversions/count", nil), token)), http.StatusOK)
	var count api.CountResult
	Decode(t, resp, &count)
	assert.EqualValues(t, "unlimited", count.Limit)
}

func TestPresets(t *testing.T) {
	t.Parallel()
	token := register(t, "it-"+uuid.NewString(), "slaptas")

	resp := CheckCode(t, Invoke(t, cfg.httpclient, withToken(NewRequest(t, http.MethodPost, cfg.apiURL,
		"/api/presets", api.PresetInput{Name: "intro", Content: "olia"}), token)), http.StatusCreated)
	var pr api.PresetInfo
	Decode(t, resp, &pr)

	resp = CheckCode(t, Invoke(t, cfg.httpclient, withToken(NewRequest(t, http.MethodPut, cfg.apiURL,
		fmt.Sprintf("/api/presets/%d", pr.ID), api.PresetInput{Name: "outro"}), token)), http.StatusOK)
	Decode(t, resp, &pr)
	assert.Equal(t, "outro", pr.Name)
	assert.Equal(t, "olia", pr.Content)

	CheckCode(t, Invoke(t, cfg.httpclient, withToken(NewRequest(t, http.MethodDelete, cfg.apiURL,
		fmt.Sprintf("/api/presets/%d", pr.ID), nil), token)), http.StatusNoContent)
	CheckCode(t, Invoke(t, cfg.httpclient, withToken(NewRequest(t, http.MethodDelete, cfg.apiURL,
		fmt.Sprintf("/api/presets/%d", pr.ID), nil), token)), http.StatusNotFound)

	// other user may not touch it
	token2 := register(t, "it-"+uuid.NewString(), "slaptas")
	resp = CheckCode(t, Invoke(t, cfg.httpclient, withToken(NewRequest(t, http.MethodPost, cfg.apiURL,
		"/api/presets", api.PresetInput{Name: "intro", Content: "olia"}), token)), http.StatusCreated)
	Decode(t, resp, &pr)
	CheckCode(t, Invoke(t, cfg.httpclient, withToken(NewRequest(t, http.MethodDelete, cfg.apiURL,
		fmt.Sprintf("/api/presets/%d", pr.ID), nil), token2)), http.StatusForbidden)
}

func TestHistory_Fail_NoToken(t *testing.T) {
	t.Parallel()
	CheckCode(t, Invoke(t, cfg.httpclient,
		NewRequest(t, http.MethodGet, cfg.apiURL, "/api/files", nil)), http.StatusUnauthorized)
	CheckCode(t, Invoke(t, cfg.httpclient,
		NewRequest(t, http.MethodGet, cfg.apiURL, "/api/conversions", nil)), http.StatusUnauthorized)
}

func register(t *testing.T, name, pass string) string {
	t.Helper()
	resp := CheckCode(t, Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.apiURL,
		"/api/register", api.Credentials{Username: name, Password: pass})), http.StatusCreated)
	var ui api.UserInfo
	Decode(t, resp, &ui)
	require.NotEmpty(t, ui.Token)
	return ui.Token
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func newUploadRequest(t *testing.T, fileName, contentType, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
		hdr.Set("Content-Type", contentType)
		part, err := writer.CreatePart(hdr)
		require.Nil(t, err)
		_, err = part.Write([]byte(content))
		require.Nil(t, err)
	}
	writer.Close()
	req, err := http.NewRequest(http.MethodPost, cfg.apiURL+"/api/upload", body)
	require.Nil(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func startMockTTS(port int) (net.Listener, *httptest.Server) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatalf("can't start mock tts service: %v", err)
	}
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.String() {
		case "/synthesize":
			_, _ = io.WriteString(w, "mocked mp3")
		default:
			log.Printf("Unknown request to: " + r.URL.String())
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ts.Listener.Close()
	ts.Listener = l
	ts.Start()
	log.Printf("started mock tts srv on port: %d", port)
	return l, ts
}
