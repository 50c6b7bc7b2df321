package genai

import (
	"context"
	"fmt"
	"strings"
)

// GenerateVideos submits an asynchronous video generation job and returns
// its operation handle. The caller polls with GetOperation.
func (c *Client) GenerateVideos(ctx context.Context, model, prompt string, cfg VideoConfig) (*Operation, error) {
	params := map[string]any{
		"sampleCount": 1,
	}
	if cfg.DurationSeconds > 0 {
		params["durationSeconds"] = cfg.DurationSeconds
	}
	if cfg.PersonGeneration != "" {
		params["personGeneration"] = cfg.PersonGeneration
	}
	body := predictRequest{
		Instances:  []map[string]any{{"prompt": prompt}},
		Parameters: params,
	}

	var resp operationResponse
	if err := c.post(ctx, fmt.Sprintf("/v1beta/models/%s:predictLongRunning", model), body, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("genai: video generation returned no operation name")
	}
	return opFromResponse(&resp), nil
}

// GetOperation refreshes the state of a video generation operation.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	var resp operationResponse
	if err := c.get(ctx, "/v1beta/"+strings.TrimPrefix(name, "/"), &resp); err != nil {
		return nil, err
	}
	return opFromResponse(&resp), nil
}

func opFromResponse(resp *operationResponse) *Operation {
	op := &Operation{Name: resp.Name, Done: resp.Done}
	if resp.Error != nil {
		op.Error = resp.Error.Message
	}
	samples := resp.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) > 0 {
		op.VideoURI = samples[0].Video.URI
	}
	return op
}
