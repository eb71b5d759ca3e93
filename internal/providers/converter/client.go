// Package converter is the HTTP client for the remote conversion service.
package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"pdfgate/internal/domain"
)

// ErrMissingBaseURL indicates that the client was configured without an endpoint.
var ErrMissingBaseURL = errors.New("converter: base url is required")

// DefaultMaxArtifactBytes caps the response body read from the service.
const DefaultMaxArtifactBytes = 256 << 20

// Options configures the conversion service client.
type Options struct {
	BaseURL          string
	APIKey           string
	HTTPClient       *http.Client
	Logger           *zerolog.Logger
	RequestTimeout   time.Duration
	MaxArtifactBytes int64
}

// Client submits files to the conversion service and returns the produced
// artifact. It implements domain.ExecutionBackend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
	maxBytes   int64
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with defaults for anything left unset.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	maxBytes := opts.MaxArtifactBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArtifactBytes
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger,
		maxBytes:   maxBytes,
	}, nil
}

// SubmitConversion uploads file for toolID as multipart form data to
// {base}/v1/convert. The response body is the artifact; its name comes from
// Content-Disposition when present.
func (c *Client) SubmitConversion(ctx context.Context, toolID string, file domain.File) (*domain.Artifact, error) {
	if strings.TrimSpace(toolID) == "" {
		return nil, errors.New("converter: tool is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("tool", toolID); err != nil {
		return nil, fmt.Errorf("converter: encode tool: %w", err)
	}
	name := file.Name
	if name == "" {
		name = "upload"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("converter: encode file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("converter: encode file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("converter: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/convert", &body)
	if err != nil {
		return nil, fmt.Errorf("converter: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("converter: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("converter: read response: %w", err)
	}
	if int64(len(raw)) > c.maxBytes {
		return nil, fmt.Errorf("converter: artifact exceeds %d bytes", c.maxBytes)
	}

	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("converter: %s (%s)", detail.Message, detail.Code)
		}
		return nil, fmt.Errorf("converter: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(raw) == 0 {
		return nil, errors.New("converter: empty artifact")
	}

	artifact := &domain.Artifact{
		Filename:    artifactName(resp.Header.Get("Content-Disposition"), file.Name, toolID),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        raw,
	}
	if artifact.ContentType == "" {
		artifact.ContentType = http.DetectContentType(raw)
	}
	c.logger.Debug().
		Str("tool", toolID).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("converter: artifact received")
	return artifact, nil
}

func artifactName(disposition, inputName, toolID string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return name
			}
		}
	}
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	if base == "" || base == "." {
		base = toolID
	}
	return base + ".out"
}

var _ domain.ExecutionBackend = (*Client)(nil)
