package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skymarchbot/skymarch/internal/bsky"
	"github.com/skymarchbot/skymarch/internal/media"
)

// postCharLimit is the platform's per-post character budget.
const postCharLimit = 300

// minBlobBytes rejects generated media too small to be a valid file.
const minBlobBytes = 1000

// maxImageBlobKB is the upload ceiling for image blobs; larger images are
// recompressed first.
const maxImageBlobKB = 950

// SplitPost splits text into segments of at most limit characters.
// Sentences are kept together while they fit; a single sentence over the
// limit falls back to word-level accumulation. Every returned segment is
// non-empty; empty input yields an empty list.
func SplitPost(text string, limit int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var posts []string
	current := ""
	flush := func() {
		if s := strings.TrimSpace(current); s != "" {
			posts = append(posts, s)
		}
		current = ""
	}

	for _, sentence := range splitSentences(text) {
		if len(current)+len(sentence)+1 > limit {
			flush()
			if len(sentence) > limit {
				// Word-level fallback for this sentence only.
				word := ""
				for _, w := range strings.Fields(sentence) {
					if len(word)+len(w)+1 > limit && word != "" {
						posts = append(posts, word)
						word = w
					} else if word == "" {
						word = w
					} else {
						word += " " + w
					}
				}
				if word != "" {
					posts = append(posts, word)
				}
			} else {
				current = sentence
			}
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	flush()
	return posts
}

// splitSentences cuts text at sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(text[i+1]) {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// replyMedia is the single media attachment carried by segment 0.
type replyMedia struct {
	kind string // "image" or "video"
	data []byte
	alt  string
}

// postReplyChain posts segments as a reply chain under target. Segment 0
// replies to the triggering post with the thread root carried forward;
// each later segment replies to the previous bot post. Only segment 0 may
// carry media. Posting stops at maxPosts and stops immediately on any send
// failure: a half-posted chain is better than a mis-threaded one.
func (p *Pipeline) postReplyChain(ctx context.Context, target *bsky.Post, segments []string, m *replyMedia, maxPosts int) {
	parentRef := bsky.PostRef{URI: target.URI, CID: target.CID}
	rootRef := parentRef
	if target.Record.Reply != nil {
		rootRef = target.Record.Reply.Root
	}

	if len(segments) > maxPosts {
		slog.Warn("reply overflows max thread depth, dropping extra segments",
			"segments", len(segments), "max", maxPosts)
		segments = segments[:maxPosts]
	}

	for i, text := range segments {
		var embed any
		if i == 0 && m != nil {
			embed = p.uploadMediaEmbed(ctx, m)
		}
		facets := bsky.GenerateFacets(ctx, text, p.social)

		if err := p.limiter.WaitBluesky(ctx); err != nil {
			return
		}
		ref, err := p.social.SendPost(ctx, bsky.SendPostParams{
			Text:   text,
			Reply:  &bsky.PostReplyRef{Root: rootRef, Parent: parentRef},
			Embed:  embed,
			Facets: facets,
		})
		if err != nil {
			slog.Error("failed to send reply segment, abandoning rest of chain",
				"segment", i+1, "of", len(segments), "error", err)
			return
		}
		slog.Info("sent reply segment", "segment", i+1, "of", len(segments), "uri", ref.URI)
		parentRef = ref
	}
}

// postSelfThread posts segments as a standalone thread on the bot's own
// timeline: the first segment is a top-level post, each later segment
// replies to the previous one.
func (p *Pipeline) postSelfThread(ctx context.Context, segments []string, m *replyMedia) (bsky.PostRef, error) {
	var rootRef, parentRef bsky.PostRef

	for i, text := range segments {
		var embed any
		if i == 0 && m != nil {
			embed = p.uploadMediaEmbed(ctx, m)
		}
		var reply *bsky.PostReplyRef
		if i > 0 {
			reply = &bsky.PostReplyRef{Root: rootRef, Parent: parentRef}
		}
		facets := bsky.GenerateFacets(ctx, text, p.social)

		if err := p.limiter.WaitBluesky(ctx); err != nil {
			return rootRef, err
		}
		ref, err := p.social.SendPost(ctx, bsky.SendPostParams{
			Text:   text,
			Reply:  reply,
			Embed:  embed,
			Facets: facets,
		})
		if err != nil {
			return rootRef, fmt.Errorf("send segment %d/%d: %w", i+1, len(segments), err)
		}
		if i == 0 {
			rootRef = ref
		}
		parentRef = ref
	}
	return rootRef, nil
}

// uploadMediaEmbed uploads the generated media blob and wraps it in the
// right embed type. Returns nil (post goes out text-only) on any failure.
func (p *Pipeline) uploadMediaEmbed(ctx context.Context, m *replyMedia) any {
	if len(m.data) < minBlobBytes {
		slog.Warn("media too small to be valid, skipping upload", "bytes", len(m.data))
		return nil
	}
	switch m.kind {
	case "image":
		compressed, err := media.CompressJPEG(m.data, maxImageBlobKB)
		if err != nil {
			slog.Error("failed to compress generated image", "error", err)
			return nil
		}
		blob, err := p.social.UploadBlob(ctx, compressed, "image/jpeg")
		if err != nil {
			slog.Error("failed to upload image blob", "error", err)
			return nil
		}
		return bsky.NewEmbedImages(m.alt, blob)
	case "video":
		blob, err := p.social.UploadBlob(ctx, m.data, "video/mp4")
		if err != nil {
			slog.Error("failed to upload video blob", "error", err)
			return nil
		}
		return bsky.NewEmbedVideo(m.alt, blob)
	}
	return nil
}
