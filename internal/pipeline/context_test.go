package pipeline

import (
	"strings"
	"testing"

	"github.com/skymarchbot/skymarch/internal/bsky"
)

func TestThreadLength(t *testing.T) {
	if got := threadLength(threadOfDepth(1)); got != 1 {
		t.Errorf("single post length = %d, want 1", got)
	}
	if got := threadLength(threadOfDepth(7)); got != 7 {
		t.Errorf("chain length = %d, want 7", got)
	}

	// A deleted ancestor stops the count.
	node := threadOfDepth(4)
	node.Parent.Parent = &bsky.ThreadNode{Type: "app.bsky.feed.defs#notFoundPost"}
	if got := threadLength(node); got != 2 {
		t.Errorf("length past deleted ancestor = %d, want 2", got)
	}
}

func TestBuildThreadEntriesRootFirst(t *testing.T) {
	entries := buildThreadEntries(threadOfDepth(3))
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Text != "message 0" || entries[2].Text != "message 2" {
		t.Errorf("entries not in root-first order: %q, %q", entries[0].Text, entries[2].Text)
	}
}

func TestClassifyEmbed(t *testing.T) {
	tests := []struct {
		name string
		in   *bsky.EmbedView
		kind EmbedKind
	}{
		{name: "nil", in: nil, kind: EmbedNone},
		{
			name: "images",
			in: &bsky.EmbedView{Type: bsky.EmbedTypeImages, Images: []bsky.ImageView{
				{Fullsize: "https://cdn.example.com/a.jpg", Alt: "a sunset"},
			}},
			kind: EmbedImage,
		},
		{
			name: "video",
			in:   &bsky.EmbedView{Type: bsky.EmbedTypeVideo, CID: "bafyvideo", Alt: "a clip"},
			kind: EmbedVideo,
		},
		{
			name: "external",
			in:   &bsky.EmbedView{Type: bsky.EmbedTypeExternal, External: &bsky.ExternalView{Title: "Article"}},
			kind: EmbedExternalLink,
		},
		{name: "quote", in: &bsky.EmbedView{Type: bsky.EmbedTypeRecord}, kind: EmbedQuotePost},
		{name: "quote with media", in: &bsky.EmbedView{Type: bsky.EmbedTypeRecordWithMedia}, kind: EmbedQuoteWithMedia},
		{name: "unknown variant", in: &bsky.EmbedView{Type: "app.bsky.embed.future#view"}, kind: EmbedOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := classifyEmbed(tt.in)
			if info.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", info.Kind, tt.kind)
			}
		})
	}
}

func TestClassifyEmbedCollectsMediaRefs(t *testing.T) {
	img := classifyEmbed(&bsky.EmbedView{Type: bsky.EmbedTypeImages, Images: []bsky.ImageView{
		{Fullsize: "https://cdn.example.com/full.jpg"},
		{Thumb: "https://cdn.example.com/thumb.jpg"},
	}})
	if len(img.ImageURLs) != 2 {
		t.Errorf("image URLs = %v, want fullsize plus thumb fallback", img.ImageURLs)
	}

	vid := classifyEmbed(&bsky.EmbedView{Type: bsky.EmbedTypeVideo, CID: "bafyvideo"})
	if len(vid.VideoCIDs) != 1 || vid.VideoCIDs[0] != "bafyvideo" {
		t.Errorf("video CIDs = %v, want [bafyvideo]", vid.VideoCIDs)
	}
}

func TestSerializeAndExtractRoundTrip(t *testing.T) {
	entries := []ThreadEntry{
		{
			DisplayName: "Alice", Handle: "alice.example.com", Text: "look at this",
			Embed: EmbedInfo{
				Kind:        EmbedImage,
				Description: " [User attached: a sunset]",
				ImageURLs:   []string{"https://cdn.example.com/a.jpg"},
			},
		},
		{
			DisplayName: "Bob", Handle: "bob.example.com", Text: "and this clip",
			Embed: EmbedInfo{
				Kind:      EmbedVideo,
				VideoCIDs: []string{"bafyvideo"},
			},
		},
	}
	ctx := serializeThread(entries)

	if !strings.Contains(ctx, "Alice (@alice.example.com): look at this [User attached: a sunset]") {
		t.Errorf("serialized context missing author line:\n%s", ctx)
	}
	urls := extractImageURLs(ctx)
	if len(urls) != 1 || urls[0] != "https://cdn.example.com/a.jpg" {
		t.Errorf("extracted image URLs = %v", urls)
	}
	refs := extractVideoRefs(ctx)
	if len(refs) != 1 || refs[0] != "BLOB:bafyvideo" {
		t.Errorf("extracted video refs = %v", refs)
	}
}

func TestCleanAltText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a quiet forest", "a quiet forest"},
		{"Alt text: a quiet forest", "a quiet forest"},
		{"A painting. Alt-text: thick brushstrokes", "thick brushstrokes"},
		{"alt: short", "short"},
	}
	for _, tt := range tests {
		if got := cleanAltText(tt.in); got != tt.want {
			t.Errorf("cleanAltText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", 400)
	if got := cleanAltText(long); len(got) != 300 {
		t.Errorf("long alt text trimmed to %d chars, want 300", len(got))
	}
}
