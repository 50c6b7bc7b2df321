// Package bus defines the normalized trigger event and the bounded queue
// that hands events from the stream consumer to the worker pool. It is the
// only structure shared between the consumer goroutine and the workers.
package bus

import (
	"fmt"

	"github.com/google/uuid"
)

// Reason classifies why an event is addressed to the bot.
type Reason string

const (
	// ReasonMention: the post text mentions the bot's handle.
	ReasonMention Reason = "mention"
	// ReasonReply: the post is a reply whose immediate parent is a bot post.
	ReasonReply Reason = "reply"
)

// Event is the single normalized input shape of the reply pipeline. Both
// adapters produce it: the Jetstream consumer (streamed) and the startup
// catch-up scan (polled notifications).
type Event struct {
	// TraceID correlates every log line for one event across adapters and
	// workers.
	TraceID string

	ActorDID   string
	Collection string
	RecordKey  string

	// URI is the canonical at:// identity; set when the adapter already has
	// it (notifications), otherwise derived from the repo path.
	uri string

	AuthorHandle string
	Text         string
	ParentURI    string
	RootURI      string
	Reason       Reason
}

// NewStreamEvent builds an Event from repo-path parts (Jetstream adapter).
func NewStreamEvent(did, collection, rkey string) *Event {
	return &Event{TraceID: uuid.NewString(), ActorDID: did, Collection: collection, RecordKey: rkey}
}

// NewNotificationEvent builds an Event from an already-resolved post URI
// (catch-up adapter).
func NewNotificationEvent(uri, authorDID, authorHandle string, reason Reason) *Event {
	return &Event{TraceID: uuid.NewString(), uri: uri, ActorDID: authorDID, AuthorHandle: authorHandle, Reason: reason}
}

// URI returns the stable at:// identity used as the dedup key.
func (e *Event) URI() string {
	if e.uri != "" {
		return e.uri
	}
	return fmt.Sprintf("at://%s/%s/%s", e.ActorDID, e.Collection, e.RecordKey)
}
