// Package firehose maintains the Jetstream subscription and filters the
// firehose down to posts addressed to the bot.
package firehose

import (
	"strings"

	"github.com/skymarchbot/skymarch/internal/bus"
)

const postCollection = "app.bsky.feed.post"

// jetstreamEvent is the raw JSON structure from Jetstream.
type jetstreamEvent struct {
	DID    string           `json:"did"`
	TimeUS int64            `json:"time_us"`
	Kind   string           `json:"kind"`
	Commit *jetstreamCommit `json:"commit,omitempty"`
}

// jetstreamCommit is the commit payload of a commit-kind event.
type jetstreamCommit struct {
	Operation  string      `json:"operation"`
	Collection string      `json:"collection"`
	RKey       string      `json:"rkey"`
	Record     *postRecord `json:"record,omitempty"`
}

// postRecord is the parsed content of an app.bsky.feed.post record.
type postRecord struct {
	Text  string    `json:"text"`
	Reply *replyRef `json:"reply,omitempty"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type strongRef struct {
	URI string `json:"uri"`
}

// Filter decides which firehose events concern the bot.
type Filter struct {
	BotDID    string
	BotHandle string
}

// Relevant applies the relevance predicate: a creation of a post record,
// not authored by the bot, that either mentions the bot's handle or replies
// directly to one of the bot's posts.
func (f Filter) Relevant(ev *jetstreamEvent) bool {
	if ev.Kind != "commit" || ev.Commit == nil {
		return false
	}
	c := ev.Commit
	if c.Operation != "create" || c.Collection != postCollection || c.Record == nil {
		return false
	}
	if ev.DID == f.BotDID {
		return false
	}
	if f.mentionsBot(c.Record.Text) {
		return true
	}
	// Direct replies to the bot only. A bot post in the thread root is not
	// enough: that would make the bot butt into user-to-user exchanges.
	if c.Record.Reply != nil && f.BotDID != "" &&
		strings.Contains(c.Record.Reply.Parent.URI, f.BotDID) {
		return true
	}
	return false
}

func (f Filter) mentionsBot(text string) bool {
	if text == "" || f.BotHandle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(f.BotHandle))
}

// Normalize converts a relevant raw event into the pipeline's Event shape.
func (f Filter) Normalize(ev *jetstreamEvent) *bus.Event {
	out := bus.NewStreamEvent(ev.DID, ev.Commit.Collection, ev.Commit.RKey)
	out.Text = ev.Commit.Record.Text
	if f.mentionsBot(ev.Commit.Record.Text) {
		out.Reason = bus.ReasonMention
	} else {
		out.Reason = bus.ReasonReply
	}
	if r := ev.Commit.Record.Reply; r != nil {
		out.ParentURI = r.Parent.URI
		out.RootURI = r.Root.URI
	}
	return out
}
