package firehose

import (
	"encoding/json"
	"testing"

	"github.com/skymarchbot/skymarch/internal/bus"
)

var testFilter = Filter{BotDID: "did:plc:bot123", BotHandle: "bot.example.com"}

func postEvent(did, text string, parentURI string) *jetstreamEvent {
	rec := &postRecord{Text: text}
	if parentURI != "" {
		rec.Reply = &replyRef{
			Root:   strongRef{URI: "at://did:plc:someone/app.bsky.feed.post/root"},
			Parent: strongRef{URI: parentURI},
		}
	}
	return &jetstreamEvent{
		DID:  did,
		Kind: "commit",
		Commit: &jetstreamCommit{
			Operation:  "create",
			Collection: postCollection,
			RKey:       "3kabc",
			Record:     rec,
		},
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   *jetstreamEvent
		want bool
	}{
		{
			name: "mention",
			ev:   postEvent("did:plc:alice", "hey @bot.example.com!", ""),
			want: true,
		},
		{
			name: "mention case insensitive",
			ev:   postEvent("did:plc:alice", "Hey @Bot.Example.Com!", ""),
			want: true,
		},
		{
			name: "reply to bot post",
			ev:   postEvent("did:plc:alice", "thanks!", "at://did:plc:bot123/app.bsky.feed.post/xyz"),
			want: true,
		},
		{
			name: "reply to someone else",
			ev:   postEvent("did:plc:alice", "thanks!", "at://did:plc:carol/app.bsky.feed.post/xyz"),
			want: false,
		},
		{
			name: "bot own post ignored",
			ev:   postEvent("did:plc:bot123", "replying @bot.example.com to myself", ""),
			want: false,
		},
		{
			name: "unrelated post",
			ev:   postEvent("did:plc:alice", "nice weather today", ""),
			want: false,
		},
		{
			name: "identity event",
			ev:   &jetstreamEvent{DID: "did:plc:alice", Kind: "identity"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testFilter.Relevant(tt.ev); got != tt.want {
				t.Errorf("Relevant = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelevantIgnoresNonCreateAndOtherCollections(t *testing.T) {
	ev := postEvent("did:plc:alice", "hey @bot.example.com", "")
	ev.Commit.Operation = "delete"
	if testFilter.Relevant(ev) {
		t.Error("delete operation marked relevant")
	}

	ev = postEvent("did:plc:alice", "hey @bot.example.com", "")
	ev.Commit.Collection = "app.bsky.feed.like"
	if testFilter.Relevant(ev) {
		t.Error("like collection marked relevant")
	}
}

func TestNormalize(t *testing.T) {
	ev := postEvent("did:plc:alice", "thanks!", "at://did:plc:bot123/app.bsky.feed.post/xyz")
	out := testFilter.Normalize(ev)

	if out.URI() != "at://did:plc:alice/app.bsky.feed.post/3kabc" {
		t.Errorf("URI = %q", out.URI())
	}
	if out.Reason != bus.ReasonReply {
		t.Errorf("Reason = %q, want reply", out.Reason)
	}
	if out.ParentURI != "at://did:plc:bot123/app.bsky.feed.post/xyz" {
		t.Errorf("ParentURI = %q", out.ParentURI)
	}

	ev = postEvent("did:plc:alice", "hi @bot.example.com", "")
	if out := testFilter.Normalize(ev); out.Reason != bus.ReasonMention {
		t.Errorf("Reason = %q, want mention", out.Reason)
	}
}

func TestJetstreamEventParsing(t *testing.T) {
	raw := `{
		"did": "did:plc:alice",
		"time_us": 1725000000000000,
		"kind": "commit",
		"commit": {
			"rev": "abc",
			"operation": "create",
			"collection": "app.bsky.feed.post",
			"rkey": "3kabc",
			"record": {
				"$type": "app.bsky.feed.post",
				"text": "hello @bot.example.com",
				"createdAt": "2025-06-01T00:00:00Z"
			}
		}
	}`
	var ev jetstreamEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !testFilter.Relevant(&ev) {
		t.Error("parsed wire event not relevant")
	}
}
