package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the skymarch bot.
type Config struct {
	Bluesky   BlueskyConfig   `json:"bluesky"`
	GenAI     GenAIConfig     `json:"genai"`
	Firehose  FirehoseConfig  `json:"firehose"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Developer DeveloperConfig `json:"developer"`
}

// BlueskyConfig holds the social-network account and API settings.
// Password is NEVER read from the config file, only from env.
type BlueskyConfig struct {
	Handle      string        `json:"handle"`
	Password    string        `json:"-"` // from env SKYMARCH_BLUESKY_PASSWORD only
	ServiceURL  string        `json:"service_url,omitempty"`
	MinInterval time.Duration `json:"-"` // minimum spacing between API calls
}

// GenAIConfig holds the generation backend models and retry discipline.
// APIKey is env only (SKYMARCH_GENAI_API_KEY).
type GenAIConfig struct {
	APIKey     string `json:"-"`
	BaseURL    string `json:"base_url,omitempty"`
	TextModel  string `json:"text_model,omitempty"`
	ImageModel string `json:"image_model,omitempty"`
	VideoModel string `json:"video_model,omitempty"`

	MaxTextRetries  int           `json:"max_text_retries,omitempty"`
	TextRetryDelay  time.Duration `json:"-"`
	MaxImageRetries int           `json:"max_image_retries,omitempty"`
	ImageRetryDelay time.Duration `json:"-"`
	MaxVideoRetries int           `json:"max_video_retries,omitempty"`
	VideoRetryDelay time.Duration `json:"-"`

	VideoPollInterval time.Duration `json:"-"`
	VideoPollTimeout  time.Duration `json:"-"`

	// Person-generation policy per media kind: "ALLOW_ADULT", "ALLOW_MINOR", "dont_allow".
	ImagePersonGeneration string `json:"image_person_generation,omitempty"`
	VideoPersonGeneration string `json:"video_person_generation,omitempty"`

	Safety SafetyConfig `json:"safety"`

	MinInterval time.Duration `json:"-"` // minimum spacing between generation calls
}

// SafetyConfig carries the per-category content-safety thresholds passed
// through to the generation backend.
type SafetyConfig struct {
	Harassment       string `json:"harassment,omitempty"`
	HateSpeech       string `json:"hate_speech,omitempty"`
	SexuallyExplicit string `json:"sexually_explicit,omitempty"`
	DangerousContent string `json:"dangerous_content,omitempty"`
	CivicIntegrity   string `json:"civic_integrity,omitempty"`
}

// FirehoseConfig configures the Jetstream subscription.
type FirehoseConfig struct {
	Endpoint       string        `json:"endpoint,omitempty"`
	ReconnectDelay time.Duration `json:"-"`
}

// PipelineConfig bounds the event pipeline: queue, dedup, thread depths,
// reply fan-out, and the periodic background tasks.
type PipelineConfig struct {
	QueueCapacity int `json:"queue_capacity,omitempty"`
	Workers       int `json:"workers,omitempty"` // 0 = auto-size from NumCPU
	DedupCapacity int `json:"dedup_capacity,omitempty"`

	ContextDepth    int `json:"context_depth,omitempty"`    // thread fetch depth for context
	ConversationCap int `json:"conversation_cap,omitempty"` // thread length at which the bot disengages
	MaxReplyPosts   int `json:"max_reply_posts,omitempty"`  // max segments posted per reply
	CatchUpLimit    int `json:"catch_up_limit,omitempty"`   // notifications scanned at startup

	StatsInterval   time.Duration `json:"-"`
	DMCheckInterval time.Duration `json:"-"`

	AutoPostEnabled     bool          `json:"auto_post_enabled,omitempty"`
	AutoPostMinInterval time.Duration `json:"-"`
	AutoPostMaxInterval time.Duration `json:"-"`
}

// DeveloperConfig identifies the out-of-band alert recipient.
type DeveloperConfig struct {
	DID    string `json:"did,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// Validate checks that the credentials required to start are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Bluesky.Handle == "" {
		missing = append(missing, "SKYMARCH_BLUESKY_HANDLE (bot handle)")
	}
	if c.Bluesky.Password == "" {
		missing = append(missing, "SKYMARCH_BLUESKY_PASSWORD (app password)")
	}
	if c.GenAI.APIKey == "" {
		missing = append(missing, "SKYMARCH_GENAI_API_KEY (generation API key)")
	}
	if c.Developer.DID == "" {
		missing = append(missing, "SKYMARCH_DEVELOPER_DID (alert recipient)")
	}
	if c.Developer.Handle == "" {
		missing = append(missing, "SKYMARCH_DEVELOPER_HANDLE (alert fallback mention)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}
