package synthesize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/voxpage/voxpage/internal/pkg/api"
)

// Client communicates with the synthesis backend
type Client struct {
	httpclient *http.Client
	synthURL   string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates a synthesis client
func NewClient(synthURL string, timeout time.Duration) (*Client, error) {
	res := Client{}
	if synthURL == "" {
		return nil, fmt.Errorf("no synthURL")
	}
	res.synthURL = synthURL
	res.timeout = timeout
	if res.timeout <= 0 {
		res.timeout = time.Second * 120
	}
	res.httpclient = ttsHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

type synthRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed"`
	Pitch    float64 `json:"pitch"`
	Voice    string  `json:"voice"`
}

// Synthesize sends the text and returns generated mp3 bytes.
// Voice settings travel with the request for the record, the backend
// contract honors only the language.
func (sp *Client) Synthesize(ctx context.Context, text, language string, voice api.VoiceSettings) ([]byte, error) {
	body, err := json.Marshal(synthRequest{Text: text, Language: language,
		Speed: voice.Speed, Pitch: voice.Pitch, Voice: voice.VoiceType})
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}

	return goapp.InvokeWithBackoff(ctx, func() ([]byte, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodPost, sp.synthURL, bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		br, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't read body: %w", err)
		}
		if len(br) == 0 {
			return nil, false, fmt.Errorf("empty audio response")
		}
		return br, false, nil
	}, sp.backoff())
}

func ttsHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
