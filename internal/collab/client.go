package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Endpoint paths, relative to the service base URL.
const (
	PathProcess               = "/process-video"
	PathRegenerateTranslation = "/regenerate-translation"
	PathRegenerateDubbing     = "/regenerate-dubbing"
	PathFinalVideo            = "/generate-final-video"
)

var (
	// ErrTransport matches every network or non-2xx failure.
	ErrTransport = errors.New("transport failure")
	// ErrPayloadTooLarge is returned when the service rejects an upload as too large.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// TransportError carries the status and body of a failed call. Status is 0
// when the request never got a response.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes every TransportError match ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Client is the AI pipeline collaborator contract.
type Client interface {
	ProcessVideo(ctx context.Context, req ProcessRequest) (ProcessResult, error)
	RegenerateTranslation(ctx context.Context, session SessionPayload, index int, instructions string) (TranslationResult, error)
	RegenerateDubbing(ctx context.Context, session SessionPayload, index int, instructions string) (DubbingResult, error)
	GenerateFinalVideo(ctx context.Context, session SessionPayload) (FinalVideo, error)
}

// HTTPClient talks to the pipeline service over HTTP.
type HTTPClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewHTTPClient returns a client for baseURL. A zero timeout means no limit.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: timeout},
	}
}

// ProcessVideo uploads the media file with the language pair, speaker roster
// and instructions, and returns the generated utterances.
func (c *HTTPClient) ProcessVideo(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	f, err := os.Open(req.MediaPath)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	part, err := writer.CreateFormFile("media", filepath.Base(req.MediaPath))
	if err != nil {
		return ProcessResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return ProcessResult{}, fmt.Errorf("copy media: %w", err)
	}

	roster, err := json.Marshal(req.Speakers)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("marshal speakers: %w", err)
	}
	writer.WriteField("original_language", req.OriginalLanguage)
	writer.WriteField("translate_language", req.TranslateLanguage)
	writer.WriteField("speakers", string(roster))
	writer.WriteField("instructions", req.Instructions)

	if err := writer.Close(); err != nil {
		return ProcessResult{}, fmt.Errorf("close writer: %w", err)
	}

	var res ProcessResult
	if err := c.do(ctx, PathProcess, writer.FormDataContentType(), &b, &res); err != nil {
		return ProcessResult{}, err
	}
	return res, nil
}

// RegenerateTranslation asks for a new translation of the utterance at index.
func (c *HTTPClient) RegenerateTranslation(ctx context.Context, session SessionPayload, index int, instructions string) (TranslationResult, error) {
	var res TranslationResult
	err := c.postJSON(ctx, PathRegenerateTranslation, RegenerateRequest{
		Session:        session,
		UtteranceIndex: index,
		Instructions:   instructions,
	}, &res)
	return res, err
}

// RegenerateDubbing asks for new synthesized audio for the utterance at index.
func (c *HTTPClient) RegenerateDubbing(ctx context.Context, session SessionPayload, index int, instructions string) (DubbingResult, error) {
	var res DubbingResult
	err := c.postJSON(ctx, PathRegenerateDubbing, RegenerateRequest{
		Session:        session,
		UtteranceIndex: index,
		Instructions:   instructions,
	}, &res)
	return res, err
}

// GenerateFinalVideo requests the final render of the session.
func (c *HTTPClient) GenerateFinalVideo(ctx context.Context, session SessionPayload) (FinalVideo, error) {
	var res FinalVideo
	err := c.postJSON(ctx, PathFinalVideo, struct {
		Session SessionPayload `json:"session"`
	}{session}, &res)
	return res, err
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, path, "application/json", bytes.NewReader(data), out)
}

func (c *HTTPClient) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return fmt.Errorf("%s: %w", path, ErrPayloadTooLarge)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{
			Op:     path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: path, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
