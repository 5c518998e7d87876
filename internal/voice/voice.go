package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"web-rag/internal/config"
	"web-rag/internal/models"
)

// Transcriber turns a recorded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer turns text into playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Client talks to an OpenAI-compatible audio endpoint for both directions.
type Client struct {
	cfg        *config.VoiceConfig
	httpClient *http.Client
}

func NewClient(cfg *config.VoiceConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Transcribe posts the audio file to /v1/audio/transcriptions and returns
// the recognized text. Failures come back as *models.TranscriptionError,
// which the session surfaces verbatim without retrying.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	if err := mw.WriteField("model", c.cfg.STTModel); err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	if err := mw.Close(); err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", &models.TranscriptionError{Cause: fmt.Errorf("request failed: %d, %s", resp.StatusCode, string(data))}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &models.TranscriptionError{Cause: err}
	}
	return out.Text, nil
}

// Synthesize posts text to /v1/audio/speech and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload := struct {
		Model string `json:"model"`
		Input string `json:"input"`
		Voice string `json:"voice"`
	}{Model: c.cfg.TTSModel, Input: text, Voice: "alloy"}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/audio/speech", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed: %d, %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

// Speak synthesizes text, writes it to a temp file, and plays it with the
// configured player command. The temp file is removed on every exit path.
func Speak(ctx context.Context, synth Synthesizer, player, text string) error {
	audio, err := synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}

	tmp, err := os.CreateTemp("", "webrag-*.mp3")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			log.Warn().Err(err).Str("path", tmpPath).Msg("Could not remove temp audio file")
		}
	}()

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, player, tmpPath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to play audio with %s: %w", player, err)
	}
	return nil
}
