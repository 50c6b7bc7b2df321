// Package pipeline implements the reply pipeline: dedup, thread context,
// generation, and reply dispatch, driven by a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/skymarchbot/skymarch/internal/bsky"
	"github.com/skymarchbot/skymarch/internal/bus"
	"github.com/skymarchbot/skymarch/internal/config"
)

// dequeueTimeout bounds how long a worker blocks waiting for work, so the
// pool notices cancellation promptly.
const dequeueTimeout = time.Second

// Pipeline owns event processing from dequeue to posted reply. One instance
// is shared by all workers; all mutable state lives in the injected
// components, which are individually synchronized.
type Pipeline struct {
	social   SocialClient
	gen      Generator
	fetch    MediaFetcher
	limiter  *RateLimiter
	dedup    *DedupCache
	queue    *bus.Queue
	stats    *bus.Stats
	notifier *Notifier
	clock    Clock

	cfg    config.PipelineConfig
	genCfg config.GenAIConfig
}

// Deps bundles the pipeline's collaborators.
type Deps struct {
	Social   SocialClient
	Gen      Generator
	Fetch    MediaFetcher
	Limiter  *RateLimiter
	Dedup    *DedupCache
	Queue    *bus.Queue
	Stats    *bus.Stats
	Notifier *Notifier
	Clock    Clock
}

// New creates a Pipeline. A nil Clock defaults to the system clock.
func New(d Deps, cfg config.PipelineConfig, genCfg config.GenAIConfig) *Pipeline {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	return &Pipeline{
		social:   d.Social,
		gen:      d.Gen,
		fetch:    d.Fetch,
		limiter:  d.Limiter,
		dedup:    d.Dedup,
		queue:    d.Queue,
		stats:    d.Stats,
		notifier: d.Notifier,
		clock:    d.Clock,
		cfg:      cfg,
		genCfg:   genCfg,
	}
}

// Worker pool size limits. Auto-sizing tops out at maxAutoWorkers; an
// explicit config value may go up to maxWorkers.
const (
	minWorkers     = 2
	maxAutoWorkers = 8
	maxWorkers     = 32
)

// WorkerCount resolves the configured worker count, auto-sizing from the
// host when unset. The result is always within [minWorkers, maxWorkers].
func (p *Pipeline) WorkerCount() int {
	n := p.cfg.Workers
	if n <= 0 {
		n = runtime.NumCPU() + 2
		if n > maxAutoWorkers {
			n = maxAutoWorkers
		}
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < minWorkers {
		n = minWorkers
	}
	return n
}

// RunWorkers runs the worker pool until ctx is cancelled, then drains the
// pool with one shutdown sentinel per worker and waits for all of them.
func (p *Pipeline) RunWorkers(ctx context.Context) error {
	n := p.WorkerCount()
	slog.Info("starting worker pool", "workers", n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i + 1)
	}

	<-ctx.Done()
	for i := 0; i < n; i++ {
		p.queue.EnqueueSentinel()
	}
	wg.Wait()
	slog.Info("worker pool stopped")
	return ctx.Err()
}

func (p *Pipeline) worker(ctx context.Context, id int) {
	for {
		ev, ok := p.queue.Dequeue(dequeueTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if ev == nil { // shutdown sentinel
			return
		}
		if err := p.safeProcess(ctx, ev); err != nil {
			p.stats.ProcessingErrors.Add(1)
			slog.Error("event processing failed", "worker", id, "trace", ev.TraceID, "uri", ev.URI(), "error", err)
		} else {
			p.stats.Processed.Add(1)
		}
	}
}

// safeProcess isolates a panicking event so one bad post cannot take a
// worker down.
func (p *Pipeline) safeProcess(ctx context.Context, ev *bus.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", ev.URI(), r)
		}
	}()
	return p.ProcessEvent(ctx, ev)
}

// ProcessEvent runs one event through the guard chain and, if it survives,
// generates and posts a reply. Returning nil means the event was handled,
// including the deliberate silent skips.
func (p *Pipeline) ProcessEvent(ctx context.Context, ev *bus.Event) error {
	uri := ev.URI()
	if p.dedup.MarkAndCheck(uri) {
		slog.Debug("skipping already-processed post", "uri", uri)
		return nil
	}
	slog.Info("processing event", "trace", ev.TraceID, "uri", uri, "reason", ev.Reason)

	if err := p.limiter.WaitBluesky(ctx); err != nil {
		return err
	}
	node, err := p.social.GetPostThread(ctx, uri, p.cfg.ContextDepth)
	if err != nil {
		return fmt.Errorf("fetch thread: %w", err)
	}
	if !node.Resolvable() {
		slog.Info("triggering post is gone or blocked, skipping", "uri", uri)
		return nil
	}

	if done, err := p.enforceConversationCap(ctx, node); done || err != nil {
		return err
	}
	if p.alreadyReplied(node) {
		slog.Info("already replied in this thread, skipping", "uri", uri)
		return nil
	}
	if ev.Reason == bus.ReasonReply && !p.parentIsOwnPost(node) {
		slog.Info("reply does not target a bot post, skipping", "uri", uri)
		return nil
	}

	entries := buildThreadEntries(node)
	if len(entries) == 0 {
		return fmt.Errorf("no usable thread context for %s", uri)
	}
	threadContext := serializeThread(entries)

	parts := p.collectInlineMedia(ctx, threadContext, node.Post.Author.DID)
	prompt := personaInstruction + "\n\n" + replyFraming + "\n\nConversation:\n" + threadContext

	g, ok := p.generateText(ctx, prompt, parts)
	if !ok {
		return fmt.Errorf("text generation produced nothing for %s", uri)
	}

	text, m := p.resolveMedia(ctx, g)
	segments := SplitPost(text, postCharLimit)
	if len(segments) == 0 {
		if m == nil {
			// Media-only reply whose generation failed; nothing worth posting.
			slog.Info("no reply content survived generation, suppressing", "uri", uri)
			return nil
		}
		segments = []string{""} // media-only reply
	}

	p.postReplyChain(ctx, node.Post, segments, m, p.cfg.MaxReplyPosts)
	return nil
}

// enforceConversationCap disengages from threads that have grown past the
// configured length. The first time the cap is hit the bot posts one canned
// sign-off; if the parent already is that sign-off (someone replied to it),
// the bot stays silent so the canned message can never chain.
func (p *Pipeline) enforceConversationCap(ctx context.Context, node *bsky.ThreadNode) (done bool, err error) {
	depth := threadLength(node)
	if depth < p.cfg.ConversationCap {
		return false, nil
	}
	slog.Info("conversation exceeds length cap", "depth", depth, "cap", p.cfg.ConversationCap)

	parent := node.Parent
	if parent != nil && parent.Resolvable() &&
		parent.Post.Author.DID == p.social.DID() &&
		strings.Contains(parent.Post.Record.Text, threadDepthLimitMessage) {
		slog.Info("parent is our own sign-off, staying silent")
		return true, nil
	}
	p.postReplyChain(ctx, node.Post, []string{threadDepthLimitMessage}, nil, 1)
	return true, nil
}

// alreadyReplied reports whether the bot has a direct reply under the
// triggering post, which covers restarts racing the dedup cache.
func (p *Pipeline) alreadyReplied(node *bsky.ThreadNode) bool {
	for _, r := range node.Replies {
		if r != nil && r.Post != nil && r.Post.Author.DID == p.social.DID() {
			return true
		}
	}
	return false
}

// parentIsOwnPost verifies a reply-triggered event actually targets one of
// the bot's posts. The stream filter matches on a DID substring, which can
// false-positive on quoted URIs; the fetched thread is authoritative.
func (p *Pipeline) parentIsOwnPost(node *bsky.ThreadNode) bool {
	parent := node.Parent
	return parent != nil && parent.Resolvable() && parent.Post.Author.DID == p.social.DID()
}

// resolveMedia runs whichever media directive the model emitted and folds
// the outcome into the reply text: success attaches media, a policy
// rejection replaces the need for media with an explanation, and a
// technical failure appends the fallback note. A technical failure on a
// media-only reply leaves nothing worth posting, so the text stays empty.
func (p *Pipeline) resolveMedia(ctx context.Context, g generated) (string, *replyMedia) {
	text := g.text

	switch {
	case g.videoPrompt != "":
		res := p.generateVideo(ctx, g.videoPrompt)
		if res.success() {
			return text, &replyMedia{kind: "video", data: res.data, alt: cleanAltText(g.videoPrompt)}
		}
		if res.policyRejected() {
			return joinNote(text, res.policyMsg), nil
		}
		return appendFallback(text), nil

	case g.imagePrompt != "":
		res := p.generateImage(ctx, g.imagePrompt)
		if res.success() {
			return text, &replyMedia{kind: "image", data: res.data, alt: cleanAltText(g.imagePrompt)}
		}
		if res.policyRejected() {
			return joinNote(text, res.policyMsg), nil
		}
		return appendFallback(text), nil
	}
	return text, nil
}

func appendFallback(text string) string {
	if text == "" {
		return ""
	}
	return text + mediaFallbackNote
}

func joinNote(text, note string) string {
	if text == "" {
		return note
	}
	return text + "\n\n" + note
}
