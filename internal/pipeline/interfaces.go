package pipeline

import (
	"context"

	"github.com/skymarchbot/skymarch/internal/bsky"
	"github.com/skymarchbot/skymarch/internal/genai"
)

// SocialClient is the slice of the Bluesky API the pipeline needs.
// *bsky.Client satisfies it; tests inject fakes.
type SocialClient interface {
	DID() string
	Handle() string

	GetPostThread(ctx context.Context, postURI string, depth int) (*bsky.ThreadNode, error)
	SendPost(ctx context.Context, p bsky.SendPostParams) (bsky.PostRef, error)
	UploadBlob(ctx context.Context, data []byte, contentType string) (bsky.BlobRef, error)
	ListNotifications(ctx context.Context, limit int) ([]bsky.Notification, error)
	ResolveHandle(ctx context.Context, handle string) (string, error)
	DescribeRepo(ctx context.Context, did string) (string, error)

	GetConvoForMembers(ctx context.Context, members []string) (string, error)
	SendDM(ctx context.Context, convoID, text string) error
	GetDMMessages(ctx context.Context, convoID string, limit int) ([]bsky.DMMessage, error)
}

// Generator is the slice of the generation backend the pipeline needs.
// *genai.Client satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, model string, req genai.TextRequest) (*genai.TextResponse, error)
	GenerateImages(ctx context.Context, model, prompt string, cfg genai.ImageConfig) ([][]byte, error)
	GenerateVideos(ctx context.Context, model, prompt string, cfg genai.VideoConfig) (*genai.Operation, error)
	GetOperation(ctx context.Context, name string) (*genai.Operation, error)
	DownloadFile(ctx context.Context, fileURI string) ([]byte, error)
}

// MediaFetcher downloads inline media referenced by thread context.
// *media.Fetcher satisfies it.
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL, typePrefix string, maxBytes int64) ([]byte, error)
	FetchBlob(ctx context.Context, pdsEndpoint, did, cid, typePrefix string, maxBytes int64) ([]byte, error)
}
