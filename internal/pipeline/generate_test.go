package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skymarchbot/skymarch/internal/genai"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		text  string
		image string
		video string
	}{
		{name: "plain text", in: "Just a reply.", text: "Just a reply."},
		{
			name:  "image directive",
			in:    "Here you go!\nIMAGE_PROMPT: a red fox in snow",
			text:  "Here you go!",
			image: "a red fox in snow",
		},
		{
			name:  "video directive",
			in:    "Watch this.\nVIDEO_PROMPT: waves rolling onto a beach",
			text:  "Watch this.",
			video: "waves rolling onto a beach",
		},
		{
			name:  "video wins over image",
			in:    "Both!\nVIDEO_PROMPT: a storm IMAGE_PROMPT: ignored",
			text:  "Both!",
			video: "a storm IMAGE_PROMPT: ignored",
		},
		{name: "directive only", in: "IMAGE_PROMPT: lone directive", image: "lone directive"},
		{name: "whitespace trimmed", in: "  padded  ", text: "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := parseDirectives(tt.in)
			if g.text != tt.text || g.imagePrompt != tt.image || g.videoPrompt != tt.video {
				t.Errorf("parseDirectives(%q) = %+v, want text=%q image=%q video=%q",
					tt.in, g, tt.text, tt.image, tt.video)
			}
		})
	}
}

func TestGenerateTextBlockIsTerminal(t *testing.T) {
	env := newTestEnv()
	env.gen.textResp = &genai.TextResponse{BlockReason: "SAFETY"}

	_, ok := env.pipe.generateText(context.Background(), "prompt", nil)
	if ok {
		t.Fatal("blocked prompt reported as success")
	}
	if env.gen.textCalls != 1 {
		t.Errorf("blocked prompt retried: %d calls, want 1", env.gen.textCalls)
	}
}

func TestGenerateTextRetriesTransientErrors(t *testing.T) {
	env := newTestEnv()
	env.gen.textErr = errors.New("connection reset")

	_, ok := env.pipe.generateText(context.Background(), "prompt", nil)
	if ok {
		t.Fatal("persistent failure reported as success")
	}
	if env.gen.textCalls != env.pipe.genCfg.MaxTextRetries {
		t.Errorf("made %d calls, want %d", env.gen.textCalls, env.pipe.genCfg.MaxTextRetries)
	}
}

func TestGenerateImagePolicyRejection(t *testing.T) {
	env := newTestEnv()
	env.gen.imagesErr = errors.New("request blocked by safety filters")

	res := env.pipe.generateImage(context.Background(), "a portrait")
	if res.success() {
		t.Fatal("policy rejection reported as success")
	}
	if !res.policyRejected() {
		t.Fatal("safety error not classified as policy rejection")
	}
	if !strings.Contains(res.policyMsg, "content policy") {
		t.Errorf("unexpected policy message: %q", res.policyMsg)
	}
}

func TestGenerateImagePersonHeuristic(t *testing.T) {
	env := newTestEnv()
	env.gen.images = nil // backend silently returns nothing

	res := env.pipe.generateImage(context.Background(), "a person waving hello")
	if !res.policyRejected() {
		t.Fatal("zero results for a person prompt should classify as policy rejection")
	}
}

func TestPollVideoSuccess(t *testing.T) {
	env := newTestEnv()
	env.gen.opStates = []*genai.Operation{
		{Name: "op1"},
		{Name: "op1"},
		{Name: "op1", Done: true, VideoURI: "https://files.example.com/v.mp4"},
	}

	op, errMsg := env.pipe.pollVideo(context.Background(), &genai.Operation{Name: "op1"})
	if errMsg != "" {
		t.Fatalf("pollVideo error: %s", errMsg)
	}
	if !op.Done || op.VideoURI == "" {
		t.Fatalf("operation not completed: %+v", op)
	}
	if len(env.clock.sleeps) != 3 {
		t.Errorf("polled %d times, want 3", len(env.clock.sleeps))
	}
}

func TestPollVideoTimesOut(t *testing.T) {
	env := newTestEnv()
	env.gen.opStates = []*genai.Operation{{Name: "op1"}} // never finishes

	_, errMsg := env.pipe.pollVideo(context.Background(), &genai.Operation{Name: "op1"})
	if !strings.Contains(errMsg, "timed out") {
		t.Fatalf("expected timeout, got %q", errMsg)
	}
	// 10min budget at 15s per poll; the check runs before each sleep, so the
	// poll landing exactly on the deadline still goes through.
	if n := len(env.clock.sleeps); n != 41 {
		t.Errorf("slept %d times before timeout, want 41", n)
	}
}

func TestPollVideoAlreadyDone(t *testing.T) {
	env := newTestEnv()
	op, errMsg := env.pipe.pollVideo(context.Background(),
		&genai.Operation{Name: "op1", Done: true, VideoURI: "https://files.example.com/v.mp4"})
	if errMsg != "" || !op.Done {
		t.Fatalf("pre-completed operation mishandled: %+v err=%q", op, errMsg)
	}
	if len(env.clock.sleeps) != 0 {
		t.Error("slept for an already-done operation")
	}
}

func TestPollVideoOperationError(t *testing.T) {
	env := newTestEnv()
	env.gen.opStates = []*genai.Operation{{Name: "op1", Done: true, Error: "internal error"}}

	_, errMsg := env.pipe.pollVideo(context.Background(), &genai.Operation{Name: "op1"})
	if errMsg != "internal error" {
		t.Fatalf("operation error not surfaced: %q", errMsg)
	}
}

func TestGenerateVideoDownloadsResult(t *testing.T) {
	env := newTestEnv()
	env.gen.submitOp = &genai.Operation{Name: "op1", Done: true, VideoURI: "https://files.example.com/v.mp4"}
	env.gen.fileData = []byte("mp4 bytes")

	res := env.pipe.generateVideo(context.Background(), "waves at sunset")
	if !res.success() {
		t.Fatalf("video generation failed: %+v", res)
	}
	if string(res.data) != "mp4 bytes" {
		t.Errorf("wrong video payload: %q", res.data)
	}
}

func TestCollectInlineMediaRespectsCaps(t *testing.T) {
	env := newTestEnv()
	var b strings.Builder
	b.WriteString("Someone (@a.example.com): look at these\n")
	urls := []string{
		"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.jpg", "https://cdn.example.com/4.jpg",
		"https://cdn.example.com/5.jpg", "https://cdn.example.com/6.jpg",
	}
	for i, u := range urls {
		b.WriteString("<<IMAGE_URL_")
		b.WriteByte(byte('1' + i))
		b.WriteString(":" + u + ">>\n")
		env.fetch.data[u] = []byte("jpegdata")
	}

	parts := env.pipe.collectInlineMedia(context.Background(), b.String(), "did:plc:a")
	if len(parts) != maxInlineImages {
		t.Errorf("attached %d images, want capped at %d", len(parts), maxInlineImages)
	}
}
