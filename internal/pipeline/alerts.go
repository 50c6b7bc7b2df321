package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skymarchbot/skymarch/internal/bsky"
)

// maxDMLength bounds alert messages sent over DM.
const maxDMLength = 1000

// Notifier is the out-of-band alert channel: a DM to the developer, with a
// public @-mention fallback reserved for critical failures. Routine
// warnings never fall back to the public timeline.
type Notifier struct {
	client          SocialClient
	limiter         *RateLimiter
	developerDID    string
	developerHandle string
	botHandle       string
}

// NewNotifier creates the alert channel.
func NewNotifier(client SocialClient, limiter *RateLimiter, developerDID, developerHandle, botHandle string) *Notifier {
	return &Notifier{
		client:          client,
		limiter:         limiter,
		developerDID:    developerDID,
		developerHandle: developerHandle,
		botHandle:       botHandle,
	}
}

// Alert sends a DM-only alert. Failures are logged, never propagated; the
// alert channel must not add failure modes to the pipeline.
func (n *Notifier) Alert(ctx context.Context, message, kind string) {
	if !n.sendDM(ctx, message, kind) {
		slog.Error("developer alert could not be delivered", "kind", kind)
	}
}

// AlertCritical sends a DM alert and, if the DM channel fails, falls back
// to a public mention of the developer. Only for critical errors.
func (n *Notifier) AlertCritical(ctx context.Context, message, kind string) {
	if n.sendDM(ctx, message, kind) {
		return
	}
	fallback := fmt.Sprintf("@%s 🚨 %s: %s", n.developerHandle, kind, message)
	if len(fallback) > 300 {
		fallback = fallback[:297] + "..."
	}
	facets := bsky.GenerateFacets(ctx, fallback, n.client)
	if _, err := n.client.SendPost(ctx, bsky.SendPostParams{Text: fallback, Facets: facets}); err != nil {
		slog.Error("all alert channels failed", "kind", kind, "error", err)
		return
	}
	slog.Info("sent alert as public mention (DM failed)", "kind", kind)
}

// Notify sends an informational DM (startup notice, status). No public
// fallback, failures are only logged.
func (n *Notifier) Notify(ctx context.Context, message string) {
	if n.developerDID == "" {
		return
	}
	if len(message) > maxDMLength {
		message = message[:maxDMLength-3] + "..."
	}
	if err := n.limiter.WaitBluesky(ctx); err != nil {
		return
	}
	convoID, err := n.client.GetConvoForMembers(ctx, []string{n.developerDID})
	if err != nil {
		slog.Error("failed to open developer DM conversation", "error", err)
		return
	}
	if err := n.client.SendDM(ctx, convoID, message); err != nil {
		slog.Error("failed to send developer notice", "error", err)
	}
}

func (n *Notifier) sendDM(ctx context.Context, message, kind string) bool {
	if n.developerDID == "" {
		return false
	}
	if len(message) > maxDMLength {
		message = message[:maxDMLength-3] + "..."
	}
	text := fmt.Sprintf("🚨 %s\n\nBot: @%s\nError: %s\n\nTime: %s",
		kind, n.botHandle, message, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	if err := n.limiter.WaitBluesky(ctx); err != nil {
		return false
	}
	convoID, err := n.client.GetConvoForMembers(ctx, []string{n.developerDID})
	if err != nil {
		slog.Error("failed to open developer DM conversation", "error", err)
		return false
	}
	if err := n.client.SendDM(ctx, convoID, text); err != nil {
		slog.Error("failed to send developer DM", "kind", kind, "error", err)
		return false
	}
	slog.Info("sent developer alert", "kind", kind)
	return true
}
