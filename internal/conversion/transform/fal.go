package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FalSettings configures the fal.ai queue client.
type FalSettings struct {
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// FalProvider talks to the fal.ai queue API: submit, poll status, fetch the
// result, download the output image.
type FalProvider struct {
	settings   FalSettings
	httpClient *http.Client
}

type falSubmitRequest struct {
	Prompt              string  `json:"prompt"`
	ImageURL            string  `json:"image_url"`
	Strength            float64 `json:"strength,omitempty"`
	NumImages           int     `json:"num_images,omitempty"`
	EnableSafetyChecker bool    `json:"enable_safety_checker"`
	OutputFormat        string  `json:"output_format,omitempty"`
	SyncMode            bool    `json:"sync_mode"`
}

type falSubmitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type falStatusResponse struct {
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type falResultResponse struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
}

func NewFalProvider(settings FalSettings) (*FalProvider, error) {
	if settings.Endpoint == "" {
		return nil, fmt.Errorf("fal endpoint is required")
	}
	if settings.APIKey == "" {
		return nil, fmt.Errorf("fal api key is required")
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 120 * time.Second
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 2 * time.Second
	}

	return &FalProvider{
		settings:   settings,
		httpClient: &http.Client{Timeout: settings.Timeout},
	}, nil
}

func (p *FalProvider) Name() string {
	return "fal"
}

func (p *FalProvider) Transform(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.Timeout)
	defer cancel()

	requestID, err := p.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := p.pollForResult(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if len(result.Images) == 0 {
		return nil, fmt.Errorf("fal returned no images for request %s", requestID)
	}

	image, err := p.download(ctx, result.Images[0].URL)
	if err != nil {
		return nil, err
	}

	mimeType := result.Images[0].ContentType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return &Result{
		Image:    image,
		MimeType: mimeType,
		Model:    p.modelName(),
	}, nil
}

// modelName is the endpoint path after the queue host, e.g.
// "fal-ai/flux-general/image-to-image".
func (p *FalProvider) modelName() string {
	trimmed := strings.TrimPrefix(p.settings.Endpoint, "https://")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func (p *FalProvider) submit(ctx context.Context, req Request) (string, error) {
	payload := falSubmitRequest{
		Prompt:              req.Prompt,
		ImageURL:            dataURI(req.MimeType, req.Image),
		NumImages:           1,
		EnableSafetyChecker: false,
		OutputFormat:        "jpeg",
	}

	body, err := p.doJSONRequest(ctx, http.MethodPost, p.settings.Endpoint, payload)
	if err != nil {
		return "", fmt.Errorf("fal submission failed: %w", err)
	}

	var response falSubmitResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal submission response: %w, body: %s", err, string(body))
	}
	if response.RequestID == "" {
		return "", fmt.Errorf("request_id not found in submission response: %s", string(body))
	}

	return response.RequestID, nil
}

func (p *FalProvider) pollForResult(ctx context.Context, requestID string) (*falResultResponse, error) {
	endpoint := strings.TrimSuffix(p.settings.Endpoint, "/")
	statusURL := fmt.Sprintf("%s/requests/%s/status", endpoint, requestID)
	resultURL := fmt.Sprintf("%s/requests/%s", endpoint, requestID)

	ticker := time.NewTicker(p.settings.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling timed out for request %s: %w", requestID, ctx.Err())
		case <-ticker.C:
			body, err := p.doJSONRequest(ctx, http.MethodGet, statusURL, nil)
			if err != nil {
				return nil, fmt.Errorf("error polling status for %s: %w", requestID, err)
			}

			var status falStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("failed to unmarshal status response: %w, body: %s", err, string(body))
			}

			zap.L().Debug("fal request status",
				zap.String("request_id", requestID),
				zap.String("status", status.Status))

			switch status.Status {
			case "COMPLETED":
				resultBody, err := p.doJSONRequest(ctx, http.MethodGet, resultURL, nil)
				if err != nil {
					return nil, fmt.Errorf("failed to fetch result for %s: %w", requestID, err)
				}
				var result falResultResponse
				if err := json.Unmarshal(resultBody, &result); err != nil {
					return nil, fmt.Errorf("failed to unmarshal result: %w, body: %s", err, string(resultBody))
				}
				return &result, nil
			case "FAILED":
				if status.Error != nil {
					return nil, fmt.Errorf("fal generation failed: %s (request_id: %s)", status.Error.Message, requestID)
				}
				return nil, fmt.Errorf("fal generation failed (request_id: %s)", requestID)
			case "IN_QUEUE", "IN_PROGRESS":
				continue
			default:
				return nil, fmt.Errorf("unknown status '%s' for request %s", status.Status, requestID)
			}
		}
	}
}

func (p *FalProvider) doJSONRequest(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Key "+p.settings.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (p *FalProvider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download result image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("result image download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func dataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
