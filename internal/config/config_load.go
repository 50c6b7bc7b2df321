package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults. Everything except
// credentials works out of the box.
func Default() *Config {
	return &Config{
		Bluesky: BlueskyConfig{
			ServiceURL:  "https://bsky.social",
			MinInterval: 500 * time.Millisecond,
		},
		GenAI: GenAIConfig{
			BaseURL:    "https://generativelanguage.googleapis.com",
			TextModel:  "gemini-2.5-pro-preview-06-05",
			ImageModel: "imagen-3.0-generate-002",
			VideoModel: "veo-2.0-generate-001",

			MaxTextRetries:  3,
			TextRetryDelay:  15 * time.Second,
			MaxImageRetries: 3,
			ImageRetryDelay: 10 * time.Second,
			MaxVideoRetries: 2,
			VideoRetryDelay: 30 * time.Second,

			VideoPollInterval: 15 * time.Second,
			VideoPollTimeout:  10 * time.Minute,

			ImagePersonGeneration: "ALLOW_ADULT",
			VideoPersonGeneration: "ALLOW_ADULT",

			Safety: SafetyConfig{
				Harassment:       "BLOCK_NONE",
				HateSpeech:       "BLOCK_NONE",
				SexuallyExplicit: "BLOCK_NONE",
				DangerousContent: "BLOCK_NONE",
				CivicIntegrity:   "BLOCK_NONE",
			},

			MinInterval: time.Second,
		},
		Firehose: FirehoseConfig{
			Endpoint:       "wss://jetstream2.us-west.bsky.network/subscribe",
			ReconnectDelay: 5 * time.Second,
		},
		Pipeline: PipelineConfig{
			QueueCapacity: 1000,
			DedupCapacity: 500,

			ContextDepth:    25,
			ConversationCap: 50,
			MaxReplyPosts:   10,
			CatchUpLimit:    50,

			StatsInterval:   60 * time.Second,
			DMCheckInterval: 30 * time.Second,

			AutoPostEnabled:     true,
			AutoPostMinInterval: 15 * time.Minute,
			AutoPostMaxInterval: 30 * time.Minute,
		},
	}
}

// Load reads config from an optional JSON5 file, then overlays env vars.
// A missing file is not an error; missing credentials are caught later by
// Validate. A .env file in the working directory is honored if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envSeconds := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = time.Duration(n) * time.Second
			}
		}
	}

	envStr("SKYMARCH_BLUESKY_HANDLE", &c.Bluesky.Handle)
	envStr("SKYMARCH_BLUESKY_PASSWORD", &c.Bluesky.Password)
	envStr("SKYMARCH_BLUESKY_SERVICE", &c.Bluesky.ServiceURL)

	envStr("SKYMARCH_GENAI_API_KEY", &c.GenAI.APIKey)
	envStr("SKYMARCH_TEXT_MODEL", &c.GenAI.TextModel)
	envStr("SKYMARCH_IMAGE_MODEL", &c.GenAI.ImageModel)
	envStr("SKYMARCH_VIDEO_MODEL", &c.GenAI.VideoModel)
	envInt("SKYMARCH_MAX_TEXT_RETRIES", &c.GenAI.MaxTextRetries)
	envSeconds("SKYMARCH_TEXT_RETRY_DELAY", &c.GenAI.TextRetryDelay)
	envInt("SKYMARCH_MAX_IMAGE_RETRIES", &c.GenAI.MaxImageRetries)
	envSeconds("SKYMARCH_IMAGE_RETRY_DELAY", &c.GenAI.ImageRetryDelay)
	envInt("SKYMARCH_MAX_VIDEO_RETRIES", &c.GenAI.MaxVideoRetries)
	envSeconds("SKYMARCH_VIDEO_RETRY_DELAY", &c.GenAI.VideoRetryDelay)
	envStr("SKYMARCH_IMAGE_PERSON_GENERATION", &c.GenAI.ImagePersonGeneration)
	envStr("SKYMARCH_VIDEO_PERSON_GENERATION", &c.GenAI.VideoPersonGeneration)

	envStr("SKYMARCH_SAFETY_HARASSMENT", &c.GenAI.Safety.Harassment)
	envStr("SKYMARCH_SAFETY_HATE_SPEECH", &c.GenAI.Safety.HateSpeech)
	envStr("SKYMARCH_SAFETY_SEXUALLY_EXPLICIT", &c.GenAI.Safety.SexuallyExplicit)
	envStr("SKYMARCH_SAFETY_DANGEROUS_CONTENT", &c.GenAI.Safety.DangerousContent)
	envStr("SKYMARCH_SAFETY_CIVIC_INTEGRITY", &c.GenAI.Safety.CivicIntegrity)

	envStr("SKYMARCH_JETSTREAM_ENDPOINT", &c.Firehose.Endpoint)
	envSeconds("SKYMARCH_JETSTREAM_RECONNECT_DELAY", &c.Firehose.ReconnectDelay)

	envInt("SKYMARCH_QUEUE_CAPACITY", &c.Pipeline.QueueCapacity)
	envInt("SKYMARCH_WORKERS", &c.Pipeline.Workers)
	envInt("SKYMARCH_DEDUP_CAPACITY", &c.Pipeline.DedupCapacity)
	envInt("SKYMARCH_CONTEXT_DEPTH", &c.Pipeline.ContextDepth)
	envInt("SKYMARCH_CONVERSATION_CAP", &c.Pipeline.ConversationCap)
	envInt("SKYMARCH_MAX_REPLY_POSTS", &c.Pipeline.MaxReplyPosts)
	envInt("SKYMARCH_CATCH_UP_LIMIT", &c.Pipeline.CatchUpLimit)

	envStr("SKYMARCH_DEVELOPER_DID", &c.Developer.DID)
	envStr("SKYMARCH_DEVELOPER_HANDLE", &c.Developer.Handle)
}
