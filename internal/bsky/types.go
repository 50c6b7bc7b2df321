package bsky

import "encoding/json"

// Author identifies a post's author.
type Author struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

// PostRef is a strong reference to a specific record version.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// ReplyRef links a reply to its thread root and immediate parent.
type PostReplyRef struct {
	Root   PostRef `json:"root"`
	Parent PostRef `json:"parent"`
}

// PostRecord is the app.bsky.feed.post record payload.
type PostRecord struct {
	Type      string        `json:"$type,omitempty"`
	Text      string        `json:"text"`
	CreatedAt string        `json:"createdAt,omitempty"`
	Reply     *PostReplyRef `json:"reply,omitempty"`
	Embed     any           `json:"embed,omitempty"`
	Facets    []Facet       `json:"facets,omitempty"`
	Langs     []string      `json:"langs,omitempty"`
}

// Post is a hydrated post view.
type Post struct {
	URI    string     `json:"uri"`
	CID    string     `json:"cid"`
	Author Author     `json:"author"`
	Record PostRecord `json:"record"`
	Embed  *EmbedView `json:"embed,omitempty"`
}

// EmbedView is the hydrated embed attached to a post view. The wire format
// discriminates on $type; exactly one of the payload fields is set.
type EmbedView struct {
	Type     string          `json:"$type"`
	Images   []ImageView     `json:"images,omitempty"`
	CID      string          `json:"cid,omitempty"`      // video blob CID
	Playlist string          `json:"playlist,omitempty"` // video HLS URL
	Alt      string          `json:"alt,omitempty"`      // video alt text
	External *ExternalView   `json:"external,omitempty"`
	Record   json.RawMessage `json:"record,omitempty"` // quoted post
	Media    *EmbedView      `json:"media,omitempty"`  // recordWithMedia inner embed
}

// Embed $type constants as they appear in post views.
const (
	EmbedTypeImages          = "app.bsky.embed.images#view"
	EmbedTypeVideo           = "app.bsky.embed.video#view"
	EmbedTypeExternal        = "app.bsky.embed.external#view"
	EmbedTypeRecord          = "app.bsky.embed.record#view"
	EmbedTypeRecordWithMedia = "app.bsky.embed.recordWithMedia#view"
)

// ImageView is one image in an images embed.
type ImageView struct {
	Thumb    string `json:"thumb,omitempty"`
	Fullsize string `json:"fullsize,omitempty"`
	Alt      string `json:"alt,omitempty"`
}

// ExternalView is a link-card embed.
type ExternalView struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// ThreadNode is one node of a getPostThread response. Nodes the viewer
// cannot resolve (deleted, blocked) carry only Type; callers must check
// Resolvable before touching Post.
type ThreadNode struct {
	Type    string        `json:"$type"`
	Post    *Post         `json:"post,omitempty"`
	Parent  *ThreadNode   `json:"parent,omitempty"`
	Replies []*ThreadNode `json:"replies,omitempty"`
}

const (
	threadViewPost = "app.bsky.feed.defs#threadViewPost"
	threadNotFound = "app.bsky.feed.defs#notFoundPost"
	threadBlocked  = "app.bsky.feed.defs#blockedPost"
)

// Resolvable reports whether this node is a readable post (not deleted,
// not blocked, not an unknown union variant).
func (n *ThreadNode) Resolvable() bool {
	return n != nil && n.Type == threadViewPost && n.Post != nil
}

// Notification is one entry from listNotifications.
type Notification struct {
	URI       string `json:"uri"`
	CID       string `json:"cid"`
	Author    Author `json:"author"`
	Reason    string `json:"reason"` // "mention", "reply", "like", ...
	IndexedAt string `json:"indexedAt"`
	IsRead    bool   `json:"isRead"`
}

// Facet is a rich-text annotation over a byte range of post text.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

// ByteSlice is a UTF-8 byte range into the post text.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

// FacetFeature is a mention or link feature. Exactly one of DID/URI is set
// depending on Type.
type FacetFeature struct {
	Type string `json:"$type"`
	DID  string `json:"did,omitempty"`
	URI  string `json:"uri,omitempty"`
}

const (
	facetMention = "app.bsky.richtext.facet#mention"
	facetLink    = "app.bsky.richtext.facet#link"
)

// BlobRef is the blob handle returned by uploadBlob, passed back verbatim
// inside embeds.
type BlobRef = json.RawMessage

// EmbedImages builds an images embed for a post record.
type EmbedImages struct {
	Type   string       `json:"$type"`
	Images []EmbedImage `json:"images"`
}

// EmbedImage pairs an uploaded blob with its alt text.
type EmbedImage struct {
	Alt   string  `json:"alt"`
	Image BlobRef `json:"image"`
}

// EmbedVideo builds a video embed for a post record.
type EmbedVideo struct {
	Type  string  `json:"$type"`
	Video BlobRef `json:"video"`
	Alt   string  `json:"alt,omitempty"`
}

// NewEmbedImages wraps one uploaded image blob as a post embed.
func NewEmbedImages(alt string, blob BlobRef) *EmbedImages {
	return &EmbedImages{
		Type:   "app.bsky.embed.images",
		Images: []EmbedImage{{Alt: alt, Image: blob}},
	}
}

// NewEmbedVideo wraps one uploaded video blob as a post embed.
func NewEmbedVideo(alt string, blob BlobRef) *EmbedVideo {
	return &EmbedVideo{Type: "app.bsky.embed.video", Video: blob, Alt: alt}
}

// DMMessage is one message in a DM conversation.
type DMMessage struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender struct {
		DID string `json:"did"`
	} `json:"sender"`
	SentAt string `json:"sentAt"`
}
