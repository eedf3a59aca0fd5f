package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"isl-announcer/internal/logging"
	"isl-announcer/internal/metrics"
)

const (
	// DefaultEndpoint is the Cloud Speech-to-Text v1 recognize method.
	DefaultEndpoint = "https://speech.googleapis.com/v1/speech:recognize"
	// DefaultLanguage is Indian English.
	DefaultLanguage = "en-IN"

	sampleRate     = 16000
	requestTimeout = 2 * time.Minute
	maxBodyBytes   = 4 << 20
)

// WAVConverter converts an arbitrary recording to 16 kHz mono PCM WAV.
type WAVConverter interface {
	ConvertToWAV(ctx context.Context, input, output string) error
}

// GoogleConfig configures GoogleRecognizer.
type GoogleConfig struct {
	Endpoint      string
	APIKey        string
	Language      string
	RatePerMinute int
	// WorkDir holds the converted audio while a request runs.
	WorkDir string
	Client  *http.Client
}

// GoogleRecognizer calls the Google Cloud Speech-to-Text REST API.
type GoogleRecognizer struct {
	endpoint  string
	apiKey    string
	language  string
	workDir   string
	client    *http.Client
	converter WAVConverter
	limiter   *rate.Limiter
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognitionConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	MaxAlternatives int    `json:"maxAlternatives"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGoogleRecognizer creates a recognizer. A RatePerMinute of 0 disables throttling.
func NewGoogleRecognizer(cfg GoogleConfig, conv WAVConverter) *GoogleRecognizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: requestTimeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1)
	}

	return &GoogleRecognizer{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		language:  cfg.Language,
		workDir:   cfg.WorkDir,
		client:    cfg.Client,
		converter: conv,
		limiter:   limiter,
	}
}

// Name implements Transcriber.
func (g *GoogleRecognizer) Name() string {
	return "google"
}

// Transcribe converts audioPath and sends it for recognition. It returns
// ErrUnintelligible or ErrServiceUnreachable (wrapped) on failure, and a
// plain error when the recording could not be converted locally.
func (g *GoogleRecognizer) Transcribe(ctx context.Context, audioPath string) (text string, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		switch {
		case err == nil:
		case errors.Is(err, ErrUnintelligible):
			result = "unintelligible"
		case errors.Is(err, ErrServiceUnreachable):
			result = "unreachable"
		default:
			result = "error"
		}
		metrics.SpeechRequestsTotal.WithLabelValues(g.Name(), result).Inc()
		metrics.SpeechRequestDuration.WithLabelValues(g.Name()).Observe(time.Since(start).Seconds())
	}()

	tmpDir, err := os.MkdirTemp(g.workDir, "speech-*")
	if err != nil {
		return "", fmt.Errorf("failed to create speech work directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			logging.Warn("failed to remove %s: %v", tmpDir, rmErr)
		}
	}()

	wavPath := filepath.Join(tmpDir, "audio.wav")
	if err := g.converter.ConvertToWAV(ctx, audioPath, wavPath); err != nil {
		if rejectedInput(ctx, err) {
			return "", fmt.Errorf("%w: %w", ErrUnintelligible, err)
		}
		return "", fmt.Errorf("failed to convert recording: %w", err)
	}
	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read converted recording: %w", err)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceUnreachable, err)
	}

	return g.recognize(ctx, audio)
}

// rejectedInput reports whether the converter ran and refused the
// recording. A missing ffmpeg or a canceled request is not the audio's fault.
func rejectedInput(ctx context.Context, err error) bool {
	var exitErr *exec.ExitError
	return ctx.Err() == nil && errors.As(err, &exitErr)
}

func (g *GoogleRecognizer) recognize(ctx context.Context, wav []byte) (string, error) {
	body, err := json.Marshal(recognizeRequest{
		Config: recognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: sampleRate,
			LanguageCode:    g.language,
			MaxAlternatives: 1,
		},
		Audio: recognitionAudio{Content: base64.StdEncoding.EncodeToString(wav)},
	})
	if err != nil {
		return "", fmt.Errorf("marshal recognize request: %w", err)
	}

	endpoint := g.endpoint
	if g.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrServiceUnreachable, err)
	}

	var parsed recognizeResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Status + ": " + parsed.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrServiceUnreachable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrServiceUnreachable, decodeErr)
	}

	var parts []string
	for _, r := range parsed.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}

	text := strings.Join(parts, " ")
	logging.Debug("Speech: recognized %d words", len(strings.Fields(text)))
	return text, nil
}
