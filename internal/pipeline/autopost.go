package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RunAutoPost publishes a standalone post at a random interval within the
// configured window, keeping the account alive between conversations. Media
// directives in the generated text are stripped rather than honored;
// unsolicited posts stay text-only.
func (p *Pipeline) RunAutoPost(ctx context.Context) error {
	if !p.cfg.AutoPostEnabled {
		slog.Info("autoposting disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		wait := autoPostDelay(p.cfg.AutoPostMinInterval, p.cfg.AutoPostMaxInterval)
		slog.Info("next automatic post scheduled", "in", wait.Round(time.Second))
		if err := p.clock.Sleep(ctx, wait); err != nil {
			return err
		}
		if err := p.autoPostOnce(ctx); err != nil {
			slog.Error("automatic post failed", "error", err)
		}
	}
}

func autoPostDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

func (p *Pipeline) autoPostOnce(ctx context.Context) error {
	prompt := personaInstruction + "\n\n" + autoPostPrompt
	g, ok := p.generateText(ctx, prompt, nil)
	if !ok || g.text == "" {
		return fmt.Errorf("no text generated for automatic post")
	}

	segments := SplitPost(g.text, postCharLimit)
	if len(segments) > p.cfg.MaxReplyPosts {
		segments = segments[:p.cfg.MaxReplyPosts]
	}
	root, err := p.postSelfThread(ctx, segments, nil)
	if err != nil {
		return err
	}
	slog.Info("published automatic post", "uri", root.URI, "parts", len(segments))
	return nil
}
