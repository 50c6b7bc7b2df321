package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skymarchbot/skymarch/internal/bsky"
)

// EmbedKind is the closed set of embed shapes the context builder emits.
// Consumers switch exhaustively on it; new wire variants land in EmbedOther
// until handled here.
type EmbedKind int

const (
	EmbedNone EmbedKind = iota
	EmbedImage
	EmbedVideo
	EmbedExternalLink
	EmbedQuotePost
	EmbedQuoteWithMedia
	EmbedOther
)

// EmbedInfo is the summarized embed of one thread post: a human-readable
// description for the prompt plus the raw media references for download.
type EmbedInfo struct {
	Kind        EmbedKind
	Description string   // e.g. "[User attached: a sunset photo]"
	ImageURLs   []string // fullsize (or thumb) URLs
	VideoCIDs   []string // blob CIDs, fetched via the author's PDS
}

// ThreadEntry is one resolvable post in the conversation chain.
type ThreadEntry struct {
	AuthorDID   string
	Handle      string
	DisplayName string
	Text        string
	Embed       EmbedInfo
}

// threadLength counts resolvable posts from the triggering post up to the
// root, stopping at the first unresolvable ancestor.
func threadLength(node *bsky.ThreadNode) int {
	count := 0
	for cur := node; cur.Resolvable(); cur = cur.Parent {
		count++
		if cur.Parent == nil {
			break
		}
	}
	return count
}

// buildThreadEntries walks parent links from the triggering post and
// returns the chain in root-to-leaf order. Traversal stops early at a
// deleted or blocked ancestor.
func buildThreadEntries(node *bsky.ThreadNode) []ThreadEntry {
	var entries []ThreadEntry
	for cur := node; cur != nil; cur = cur.Parent {
		if !cur.Resolvable() {
			break
		}
		p := cur.Post
		name := p.Author.DisplayName
		if name == "" {
			name = p.Author.Handle
		}
		entries = append(entries, ThreadEntry{
			AuthorDID:   p.Author.DID,
			Handle:      p.Author.Handle,
			DisplayName: name,
			Text:        p.Record.Text,
			Embed:       classifyEmbed(p.Embed),
		})
	}
	// reverse to root-first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// classifyEmbed collapses the wire embed union into EmbedInfo.
func classifyEmbed(e *bsky.EmbedView) EmbedInfo {
	if e == nil {
		return EmbedInfo{Kind: EmbedNone}
	}
	switch e.Type {
	case bsky.EmbedTypeImages:
		info := EmbedInfo{Kind: EmbedImage}
		var alts []string
		for _, img := range e.Images {
			alt := img.Alt
			if alt == "" {
				alt = "image"
			}
			alts = append(alts, alt)
			url := img.Fullsize
			if url == "" {
				url = img.Thumb
			}
			if url != "" {
				info.ImageURLs = append(info.ImageURLs, url)
			}
		}
		info.Description = fmt.Sprintf(" [User attached: %s]", strings.Join(alts, ", "))
		return info
	case bsky.EmbedTypeVideo:
		info := EmbedInfo{Kind: EmbedVideo}
		if e.CID != "" {
			info.VideoCIDs = append(info.VideoCIDs, e.CID)
		}
		if e.Alt != "" {
			info.Description = fmt.Sprintf(" [User attached video: %s]", e.Alt)
		} else {
			info.Description = " [User attached a video]"
		}
		return info
	case bsky.EmbedTypeExternal:
		info := EmbedInfo{Kind: EmbedExternalLink}
		if e.External != nil && e.External.Title != "" {
			info.Description = fmt.Sprintf(" [User shared a link: %s]", e.External.Title)
		} else {
			info.Description = " [User shared a link]"
		}
		return info
	case bsky.EmbedTypeRecord:
		return EmbedInfo{Kind: EmbedQuotePost, Description: " [User quoted another post]"}
	case bsky.EmbedTypeRecordWithMedia:
		return EmbedInfo{Kind: EmbedQuoteWithMedia, Description: " [User quoted another post with media]"}
	default:
		return EmbedInfo{Kind: EmbedOther}
	}
}

// serializeThread renders the conversation for the generation prompt.
// Media references become machine-parseable markers on their own lines so
// the orchestrator can extract them for inline download.
func serializeThread(entries []ThreadEntry) string {
	var lines []string
	for _, e := range entries {
		msg := fmt.Sprintf("%s (@%s): %s%s", e.DisplayName, e.Handle, e.Text, e.Embed.Description)
		for i, url := range e.Embed.ImageURLs {
			msg += fmt.Sprintf("\n<<IMAGE_URL_%d:%s>>", i+1, url)
		}
		for i, cid := range e.Embed.VideoCIDs {
			msg += fmt.Sprintf("\n<<VIDEO_URL_%d:BLOB:%s>>", i+1, cid)
		}
		lines = append(lines, msg)
	}
	return strings.Join(lines, "\n\n")
}

var (
	imageMarkerPattern = regexp.MustCompile(`<<IMAGE_URL_\d+:(https?://[^>]+)>>`)
	videoMarkerPattern = regexp.MustCompile(`<<VIDEO_URL_\d+:(BLOB:[^>]+|https?://[^>]+)>>`)
)

// extractImageURLs pulls image markers back out of serialized context.
func extractImageURLs(context string) []string {
	var urls []string
	for _, m := range imageMarkerPattern.FindAllStringSubmatch(context, -1) {
		urls = append(urls, m[1])
	}
	return urls
}

// extractVideoRefs pulls video markers; entries are either "BLOB:<cid>" or
// plain HTTP URLs.
func extractVideoRefs(context string) []string {
	var refs []string
	for _, m := range videoMarkerPattern.FindAllStringSubmatch(context, -1) {
		refs = append(refs, m[1])
	}
	return refs
}

// cleanAltText strips "alt text:"-style prefixes from generated media
// descriptions and truncates to the platform's 300-char alt limit.
func cleanAltText(text string) string {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, pattern := range []string{
		". alt text:", ". alt_text:", ". alt-text:", ". alt:",
		", alt text:", ", alt_text:", ", alt-text:", ", alt:",
		"alt text:", "alt_text:", "alt-text:", "alt:",
	} {
		if i := strings.Index(lower, pattern); i >= 0 {
			text = strings.TrimSpace(text[i+len(pattern):])
			break
		}
	}
	if len(text) > 300 {
		text = text[:297] + "..."
	}
	return text
}
