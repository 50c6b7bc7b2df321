package genai

import (
	"context"
	"encoding/base64"
	"fmt"
)

// GenerateImages runs one image generation call and returns the decoded
// image bytes. An empty slice with a nil error means the backend produced
// zero results; the caller classifies that.
func (c *Client) GenerateImages(ctx context.Context, model, prompt string, cfg ImageConfig) ([][]byte, error) {
	params := map[string]any{
		"sampleCount": 1,
	}
	if cfg.PersonGeneration != "" {
		params["personGeneration"] = cfg.PersonGeneration
	}
	if cfg.AspectRatio != "" {
		params["aspectRatio"] = cfg.AspectRatio
	}
	if cfg.OutputMimeType != "" {
		params["outputMimeType"] = cfg.OutputMimeType
	}
	body := predictRequest{
		Instances:  []map[string]any{{"prompt": prompt}},
		Parameters: params,
	}

	var resp predictResponse
	if err := c.post(ctx, fmt.Sprintf("/v1beta/models/%s:predict", model), body, &resp); err != nil {
		return nil, err
	}

	images := make([][]byte, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, fmt.Errorf("genai: decode image bytes: %w", err)
		}
		images = append(images, data)
	}
	return images, nil
}
