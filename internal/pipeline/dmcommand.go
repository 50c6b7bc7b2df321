package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// dmFetchLimit is how many recent DM messages each poll inspects.
const dmFetchLimit = 10

// RunDMCommands polls the developer DM conversation and posts any new
// developer message to the bot's public timeline. This is the operator's
// remote-post channel. The first poll only primes the seen set, so messages
// sent while the bot was down are not replayed as posts.
func (p *Pipeline) RunDMCommands(ctx context.Context) error {
	if p.notifier == nil || p.notifier.developerDID == "" {
		slog.Info("dm command channel disabled, no developer configured")
		<-ctx.Done()
		return ctx.Err()
	}

	primed := false
	for {
		if err := p.checkDMCommands(ctx, &primed); err != nil {
			slog.Warn("dm command poll failed", "error", err)
		}
		if err := p.clock.Sleep(ctx, p.cfg.DMCheckInterval); err != nil {
			return err
		}
	}
}

func (p *Pipeline) checkDMCommands(ctx context.Context, primed *bool) error {
	if err := p.limiter.WaitBluesky(ctx); err != nil {
		return err
	}
	convoID, err := p.social.GetConvoForMembers(ctx, []string{p.notifier.developerDID})
	if err != nil {
		return fmt.Errorf("open developer conversation: %w", err)
	}
	msgs, err := p.social.GetDMMessages(ctx, convoID, dmFetchLimit)
	if err != nil {
		return fmt.Errorf("fetch dm messages: %w", err)
	}

	// Oldest first so commands post in the order they were sent.
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Sender.DID == p.social.DID() || msg.Text == "" {
			continue
		}
		if p.dedup.MarkAndCheck("dm:" + msg.ID) {
			continue
		}
		if !*primed {
			continue // first pass records history without acting
		}
		p.handleDMCommand(ctx, convoID, msg.Text)
	}
	*primed = true
	return nil
}

// handleDMCommand posts the developer's text as a public self-thread and
// acknowledges over DM.
func (p *Pipeline) handleDMCommand(ctx context.Context, convoID, text string) {
	slog.Info("posting developer dm command", "chars", len(text))

	segments := SplitPost(text, postCharLimit)
	if len(segments) == 0 {
		return
	}
	root, err := p.postSelfThread(ctx, segments, nil)

	var ack string
	if err != nil {
		slog.Error("failed to post dm command", "error", err)
		ack = fmt.Sprintf("❌ Could not post that: %v", err)
	} else {
		ack = fmt.Sprintf("✅ Posted (%d part(s)): %s", len(segments), root.URI)
	}
	if err := p.limiter.WaitBluesky(ctx); err != nil {
		return
	}
	if err := p.social.SendDM(ctx, convoID, ack); err != nil {
		slog.Error("failed to acknowledge dm command", "error", err)
	}
}
