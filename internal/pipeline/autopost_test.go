package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/skymarchbot/skymarch/internal/genai"
)

func TestAutoPostDelayWithinWindow(t *testing.T) {
	min, max := 15*time.Minute, 30*time.Minute
	for i := 0; i < 100; i++ {
		d := autoPostDelay(min, max)
		if d < min || d >= max {
			t.Fatalf("delay %v outside [%v, %v)", d, min, max)
		}
	}
	if d := autoPostDelay(min, min); d != min {
		t.Errorf("degenerate window returned %v, want %v", d, min)
	}
}

func TestAutoPostOncePublishesThread(t *testing.T) {
	env := newTestEnv()
	env.gen.textResp = &genai.TextResponse{Text: "Did you know octopuses have three hearts?"}

	if err := env.pipe.autoPostOnce(context.Background()); err != nil {
		t.Fatalf("autoPostOnce: %v", err)
	}
	if len(env.social.posts) != 1 {
		t.Fatalf("posted %d times, want 1", len(env.social.posts))
	}
	if env.social.posts[0].Reply != nil {
		t.Error("automatic post must be top-level, not a reply")
	}
}

func TestAutoPostOnceFailsOnEmptyGeneration(t *testing.T) {
	env := newTestEnv()
	env.gen.textResp = &genai.TextResponse{Text: "IMAGE_PROMPT: directive with no body"}

	if err := env.pipe.autoPostOnce(context.Background()); err == nil {
		t.Fatal("directive-only output should not publish")
	}
	if len(env.social.posts) != 0 {
		t.Errorf("posted despite empty body")
	}
}
