package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skymarchbot/skymarch/internal/bus"
)

// CatchUp scans recent notifications once at startup and processes the
// mentions and replies that arrived while the bot was down. Oldest first,
// so replies land in conversation order. Dedup keys are shared with the
// live stream, so anything the stream delivers later is still handled once.
func (p *Pipeline) CatchUp(ctx context.Context) error {
	limit := p.cfg.CatchUpLimit
	if limit <= 0 {
		return nil
	}

	if err := p.limiter.WaitBluesky(ctx); err != nil {
		return err
	}
	notifs, err := p.social.ListNotifications(ctx, limit)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	slog.Info("catch-up scan", "notifications", len(notifs))

	// listNotifications returns newest first.
	handled := 0
	for i := len(notifs) - 1; i >= 0; i-- {
		n := notifs[i]
		var reason bus.Reason
		switch n.Reason {
		case "mention":
			reason = bus.ReasonMention
		case "reply":
			reason = bus.ReasonReply
		default:
			continue
		}
		if n.Author.DID == p.social.DID() {
			continue
		}
		if p.dedup.Contains(n.URI) {
			continue
		}

		ev := bus.NewNotificationEvent(n.URI, n.Author.DID, n.Author.Handle, reason)
		if err := p.safeProcess(ctx, ev); err != nil {
			p.stats.ProcessingErrors.Add(1)
			slog.Error("catch-up event failed", "uri", n.URI, "error", err)
		} else {
			p.stats.Processed.Add(1)
			handled++
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	slog.Info("catch-up scan complete", "handled", handled)
	return nil
}
