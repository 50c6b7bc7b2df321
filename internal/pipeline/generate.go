package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skymarchbot/skymarch/internal/genai"
	"github.com/skymarchbot/skymarch/internal/media"
)

// Inline-media bounds for generation requests.
const (
	maxInlineImages  = 4
	maxInlineVideos  = 2
	maxImageFetch    = 4 << 20  // per image
	maxVideoFetch    = 15 << 20 // per video
	imageMediaBudget = 100 << 20
	totalMediaBudget = 200 << 20
)

// generated is the parsed output of the text model: the reply body plus at
// most one media directive.
type generated struct {
	text        string
	imagePrompt string
	videoPrompt string
}

// mediaResult is the three-way outcome of a media sub-generation: data on
// success, policyMsg on content rejection, neither on technical failure.
type mediaResult struct {
	data      []byte
	policyMsg string
}

func (m mediaResult) success() bool        { return len(m.data) > 0 }
func (m mediaResult) policyRejected() bool { return m.policyMsg != "" }

// generateText drives the primary model with retry. A hard block on the
// prompt itself is terminal and returns ok=false immediately; empty output
// and transient errors retry up to the configured cap.
func (p *Pipeline) generateText(ctx context.Context, prompt string, parts []genai.InlinePart) (generated, bool) {
	cfg := p.genCfg
	for attempt := 1; attempt <= cfg.MaxTextRetries; attempt++ {
		if err := p.limiter.WaitGenAI(ctx); err != nil {
			return generated{}, false
		}
		resp, err := p.gen.GenerateText(ctx, cfg.TextModel, genai.TextRequest{
			Prompt:          prompt,
			Media:           parts,
			Safety:          p.safetySettings(),
			MaxOutputTokens: 20000,
		})
		switch {
		case err != nil:
			slog.Error("text generation failed", "attempt", attempt, "error", err)
		case resp.BlockReason != "":
			slog.Warn("prompt blocked by backend, not retrying", "reason", resp.BlockReason)
			return generated{}, false
		default:
			g := parseDirectives(resp.Text)
			if g.text != "" || g.imagePrompt != "" || g.videoPrompt != "" {
				return g, true
			}
			slog.Warn("text generation returned no usable content", "attempt", attempt)
		}
		if attempt < cfg.MaxTextRetries {
			if err := p.clock.Sleep(ctx, cfg.TextRetryDelay); err != nil {
				return generated{}, false
			}
		}
	}
	slog.Error("all text generation attempts failed", "attempts", cfg.MaxTextRetries)
	return generated{}, false
}

// parseDirectives splits a trailing image or video directive off the
// response text. The two markers are mutually exclusive; video wins when
// both appear (it is checked first, matching the directive contract given
// to the model).
func parseDirectives(full string) generated {
	if i := strings.Index(full, videoPromptMarker); i >= 0 {
		return generated{
			text:        strings.TrimSpace(full[:i]),
			videoPrompt: strings.TrimSpace(full[i+len(videoPromptMarker):]),
		}
	}
	if i := strings.Index(full, imagePromptMarker); i >= 0 {
		return generated{
			text:        strings.TrimSpace(full[:i]),
			imagePrompt: strings.TrimSpace(full[i+len(imagePromptMarker):]),
		}
	}
	return generated{text: strings.TrimSpace(full)}
}

func (p *Pipeline) safetySettings() []genai.SafetySetting {
	s := p.genCfg.Safety
	return []genai.SafetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: s.Harassment},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: s.HateSpeech},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: s.SexuallyExplicit},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: s.DangerousContent},
		{Category: "HARM_CATEGORY_CIVIC_INTEGRITY", Threshold: s.CivicIntegrity},
	}
}

// collectInlineMedia downloads media referenced by context markers, bounded
// per item and by a cumulative byte budget so one media-heavy thread cannot
// balloon the process.
func (p *Pipeline) collectInlineMedia(ctx context.Context, threadContext, authorDID string) []genai.InlinePart {
	var parts []genai.InlinePart
	var used int64

	images := extractImageURLs(threadContext)
	if len(images) > maxInlineImages {
		images = images[:maxInlineImages]
	}
	for _, url := range images {
		if used > imageMediaBudget {
			slog.Warn("media budget exceeded, skipping remaining images", "used", used)
			break
		}
		data, err := p.fetch.Fetch(ctx, url, "image/", maxImageFetch)
		if err != nil {
			slog.Warn("failed to download context image", "url", url, "error", err)
			continue
		}
		used += int64(len(data))
		parts = append(parts, inlinePart(media.MimeFromURL(url, "image/jpeg"), data))
	}

	videos := extractVideoRefs(threadContext)
	if len(videos) > maxInlineVideos {
		videos = videos[:maxInlineVideos]
	}
	for _, ref := range videos {
		if used > totalMediaBudget {
			slog.Warn("media budget exceeded, skipping remaining videos", "used", used)
			break
		}
		var data []byte
		var err error
		if cid, ok := strings.CutPrefix(ref, "BLOB:"); ok {
			data, err = p.fetchVideoBlob(ctx, cid, authorDID)
		} else {
			data, err = p.fetch.Fetch(ctx, ref, "video/", maxVideoFetch)
		}
		if err != nil {
			slog.Warn("failed to download context video", "ref", ref, "error", err)
			continue
		}
		used += int64(len(data))
		mime := "video/mp4"
		if !strings.HasPrefix(ref, "BLOB:") {
			mime = media.MimeFromURL(ref, "video/mp4")
		}
		parts = append(parts, inlinePart(mime, data))
	}

	if len(parts) > 0 {
		slog.Info("attached inline media to generation request", "parts", len(parts), "bytes", used)
	}
	return parts
}

// fetchVideoBlob resolves the author's PDS and downloads the blob from it,
// falling back to the main service host when resolution fails.
func (p *Pipeline) fetchVideoBlob(ctx context.Context, cid, authorDID string) ([]byte, error) {
	pds, err := p.social.DescribeRepo(ctx, authorDID)
	if err != nil {
		slog.Warn("could not resolve author PDS, trying main host", "did", authorDID, "error", err)
		pds = "https://bsky.social"
	}
	return p.fetch.FetchBlob(ctx, pds, authorDID, cid, "video/", maxVideoFetch)
}

func inlinePart(mime string, data []byte) genai.InlinePart {
	return genai.InlinePart{MimeType: mime, Data: base64.StdEncoding.EncodeToString(data)}
}

// generateImage runs the image sub-generation retry loop.
func (p *Pipeline) generateImage(ctx context.Context, prompt string) mediaResult {
	cfg := p.genCfg
	for attempt := 1; attempt <= cfg.MaxImageRetries; attempt++ {
		if err := p.limiter.WaitGenAI(ctx); err != nil {
			return mediaResult{}
		}
		images, err := p.gen.GenerateImages(ctx, cfg.ImageModel, prompt, genai.ImageConfig{
			PersonGeneration: cfg.ImagePersonGeneration,
			AspectRatio:      "1:1",
			OutputMimeType:   "image/jpeg",
		})

		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		} else if len(images) == 0 {
			errMsg = "no images generated"
		} else {
			slog.Info("generated image", "attempt", attempt, "bytes", len(images[0]))
			return mediaResult{data: images[0]}
		}

		if isPolicyFailure(errMsg, prompt) {
			slog.Info("image generation rejected by content policy", "attempt", attempt)
			return mediaResult{policyMsg: policyMessage("image", prompt)}
		}
		slog.Error("image generation failed", "attempt", attempt, "error", errMsg)
		if attempt == cfg.MaxImageRetries {
			p.notifier.Alert(ctx, fmt.Sprintf("image generation failed after %d attempts: %s", attempt, errMsg), "IMAGE GENERATION FAILURE")
			return mediaResult{}
		}
		if err := p.clock.Sleep(ctx, cfg.ImageRetryDelay); err != nil {
			return mediaResult{}
		}
	}
	return mediaResult{}
}

// videoPollState is the explicit state of one asynchronous video job.
type videoPollState int

const (
	videoSubmitted videoPollState = iota
	videoPolling
	videoDone
	videoTimedOut
)

// generateVideo runs the video sub-generation retry loop. Each attempt
// submits an asynchronous job and drives the polling state machine to
// Done or TimedOut; timeouts count as technical failures.
func (p *Pipeline) generateVideo(ctx context.Context, prompt string) mediaResult {
	cfg := p.genCfg
	for attempt := 1; attempt <= cfg.MaxVideoRetries; attempt++ {
		if err := p.limiter.WaitGenAI(ctx); err != nil {
			return mediaResult{}
		}
		op, err := p.gen.GenerateVideos(ctx, cfg.VideoModel, prompt, genai.VideoConfig{
			PersonGeneration: cfg.VideoPersonGeneration,
			DurationSeconds:  8,
		})

		var errMsg string
		if err != nil {
			errMsg = err.Error()
		} else {
			op, errMsg = p.pollVideo(ctx, op)
		}

		if errMsg == "" && op != nil && op.VideoURI != "" {
			data, dlErr := p.gen.DownloadFile(ctx, op.VideoURI)
			if dlErr == nil {
				slog.Info("generated video", "attempt", attempt, "bytes", len(data))
				return mediaResult{data: data}
			}
			errMsg = "download failed: " + dlErr.Error()
		} else if errMsg == "" {
			errMsg = "no videos generated"
		}

		if isPolicyFailure(errMsg, prompt) {
			slog.Info("video generation rejected by content policy", "attempt", attempt)
			return mediaResult{policyMsg: policyMessage("video", prompt)}
		}
		slog.Error("video generation failed", "attempt", attempt, "error", errMsg)
		if attempt == cfg.MaxVideoRetries {
			p.notifier.Alert(ctx, fmt.Sprintf("video generation failed after %d attempts: %s", attempt, errMsg), "VIDEO GENERATION FAILURE")
			return mediaResult{}
		}
		if err := p.clock.Sleep(ctx, cfg.VideoRetryDelay); err != nil {
			return mediaResult{}
		}
	}
	return mediaResult{}
}

// pollVideo drives one operation from submission to completion or timeout.
// The injected clock makes the timeout testable without waiting ten minutes.
func (p *Pipeline) pollVideo(ctx context.Context, op *genai.Operation) (*genai.Operation, string) {
	cfg := p.genCfg
	deadline := p.clock.Now().Add(cfg.VideoPollTimeout)
	state := videoSubmitted

	for {
		switch state {
		case videoSubmitted:
			if op.Done {
				state = videoDone
				continue
			}
			state = videoPolling
		case videoPolling:
			if p.clock.Now().After(deadline) {
				state = videoTimedOut
				continue
			}
			if err := p.clock.Sleep(ctx, cfg.VideoPollInterval); err != nil {
				return op, "cancelled while polling"
			}
			next, err := p.gen.GetOperation(ctx, op.Name)
			if err != nil {
				slog.Warn("video operation poll failed", "error", err)
				continue
			}
			op = next
			if op.Done {
				state = videoDone
			}
		case videoDone:
			if op.Error != "" {
				return op, op.Error
			}
			return op, ""
		case videoTimedOut:
			return op, fmt.Sprintf("video generation timed out after %s", cfg.VideoPollTimeout)
		}
	}
}
