// services/classifier_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Classifier labels a photo of a recyclable item. The model behind it is
// opaque to the ledger.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (string, error)
}

// HTTPClassifier calls an image-classification inference endpoint.
// It understands the Hugging Face shape, a list of {label, score}, and the
// single-object {"predicted_class": ...} shape served by a local sidecar.
type HTTPClassifier struct {
	BaseURL string
	Model   string
	Token   string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewHTTPClassifier(baseURL, model, token string, rps float64) *HTTPClassifier {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &HTTPClassifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Token:   token,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		Limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type predictedClass struct {
	PredictedClass string `json:"predicted_class"`
	Error          string `json:"error"`
}

// Classify posts the raw image bytes and returns the best label.
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) (string, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("classifier rate limit: %w", err)
		}
	}

	url := fmt.Sprintf("%s/models/%s", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call classifier: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read classifier response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d: %.200s", resp.StatusCode, string(body))
	}

	return parseLabel(body)
}

func parseLabel(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty classifier response")
	}

	if trimmed[0] == '[' {
		var scores []labelScore
		if err := json.Unmarshal(trimmed, &scores); err != nil {
			return "", fmt.Errorf("failed to decode classifier scores: %w", err)
		}
		best := -1
		for i, s := range scores {
			if s.Label == "" {
				continue
			}
			if best < 0 || s.Score > scores[best].Score {
				best = i
			}
		}
		if best < 0 {
			return "", fmt.Errorf("classifier returned no labels")
		}
		return scores[best].Label, nil
	}

	var out predictedClass
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return "", fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("classifier error: %s", out.Error)
	}
	if out.PredictedClass == "" {
		return "", fmt.Errorf("classifier returned no label")
	}
	return out.PredictedClass, nil
}
