package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/skymarchbot/skymarch/internal/bsky"
	"github.com/skymarchbot/skymarch/internal/bus"
	"github.com/skymarchbot/skymarch/internal/config"
	"github.com/skymarchbot/skymarch/internal/genai"
)

const threadViewType = "app.bsky.feed.defs#threadViewPost"

// fakeSocial is an in-memory SocialClient recording everything sent.
type fakeSocial struct {
	mu sync.Mutex

	did    string
	handle string

	thread     *bsky.ThreadNode
	threadErr  error
	threadGets int

	posts         []bsky.SendPostParams
	sentRefs      []bsky.PostRef
	postErr       error
	notifications []bsky.Notification
	dmMessages    []bsky.DMMessage
	sentDMs       []string
	blobs         int
}

func newFakeSocial() *fakeSocial {
	return &fakeSocial{did: "did:plc:bot", handle: "bot.example.com"}
}

func (f *fakeSocial) DID() string    { return f.did }
func (f *fakeSocial) Handle() string { return f.handle }

func (f *fakeSocial) GetPostThread(ctx context.Context, postURI string, depth int) (*bsky.ThreadNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadGets++
	return f.thread, f.threadErr
}

func (f *fakeSocial) SendPost(ctx context.Context, p bsky.SendPostParams) (bsky.PostRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return bsky.PostRef{}, f.postErr
	}
	f.posts = append(f.posts, p)
	ref := bsky.PostRef{
		URI: fmt.Sprintf("at://%s/app.bsky.feed.post/sent%d", f.did, len(f.posts)),
		CID: fmt.Sprintf("cid-sent%d", len(f.posts)),
	}
	f.sentRefs = append(f.sentRefs, ref)
	return ref, nil
}

func (f *fakeSocial) UploadBlob(ctx context.Context, data []byte, contentType string) (bsky.BlobRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs++
	return bsky.BlobRef(`{"$type":"blob"}`), nil
}

func (f *fakeSocial) ListNotifications(ctx context.Context, limit int) ([]bsky.Notification, error) {
	return f.notifications, nil
}

func (f *fakeSocial) ResolveHandle(ctx context.Context, handle string) (string, error) {
	return "did:plc:" + handle, nil
}

func (f *fakeSocial) DescribeRepo(ctx context.Context, did string) (string, error) {
	return "https://pds.example.com", nil
}

func (f *fakeSocial) GetConvoForMembers(ctx context.Context, members []string) (string, error) {
	return "convo1", nil
}

func (f *fakeSocial) SendDM(ctx context.Context, convoID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentDMs = append(f.sentDMs, text)
	return nil
}

func (f *fakeSocial) GetDMMessages(ctx context.Context, convoID string, limit int) ([]bsky.DMMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dmMessages, nil
}

func (f *fakeSocial) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.posts))
	for i, p := range f.posts {
		out[i] = p.Text
	}
	return out
}

// fakeGen scripts the generation backend.
type fakeGen struct {
	mu sync.Mutex

	textResp  *genai.TextResponse
	textErr   error
	textCalls int

	images    [][]byte
	imagesErr error

	submitOp  *genai.Operation
	videosErr error
	// opStates is consumed one per GetOperation call; the last repeats.
	opStates []*genai.Operation
	opCalls  int

	fileData []byte
	fileErr  error
}

func (f *fakeGen) GenerateText(ctx context.Context, model string, req genai.TextRequest) (*genai.TextResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	return f.textResp, f.textErr
}

func (f *fakeGen) GenerateImages(ctx context.Context, model, prompt string, cfg genai.ImageConfig) ([][]byte, error) {
	return f.images, f.imagesErr
}

func (f *fakeGen) GenerateVideos(ctx context.Context, model, prompt string, cfg genai.VideoConfig) (*genai.Operation, error) {
	return f.submitOp, f.videosErr
}

func (f *fakeGen) GetOperation(ctx context.Context, name string) (*genai.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.opCalls
	if i >= len(f.opStates) {
		i = len(f.opStates) - 1
	}
	f.opCalls++
	return f.opStates[i], nil
}

func (f *fakeGen) DownloadFile(ctx context.Context, fileURI string) ([]byte, error) {
	return f.fileData, f.fileErr
}

// fakeFetch serves media from a map.
type fakeFetch struct {
	data map[string][]byte
}

func (f *fakeFetch) Fetch(ctx context.Context, rawURL, typePrefix string, maxBytes int64) ([]byte, error) {
	if d, ok := f.data[rawURL]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("not found: %s", rawURL)
}

func (f *fakeFetch) FetchBlob(ctx context.Context, pdsEndpoint, did, cid, typePrefix string, maxBytes int64) ([]byte, error) {
	if d, ok := f.data["blob:"+cid]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("blob not found: %s", cid)
}

// fakeClock advances instantly on Sleep and records every sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func testConfigs() (config.PipelineConfig, config.GenAIConfig) {
	pc := config.PipelineConfig{
		QueueCapacity:   16,
		Workers:         2,
		DedupCapacity:   100,
		ContextDepth:    25,
		ConversationCap: 5,
		MaxReplyPosts:   3,
		CatchUpLimit:    10,
		StatsInterval:   time.Minute,
		DMCheckInterval: time.Millisecond,
	}
	gc := config.GenAIConfig{
		TextModel:         "text-model",
		ImageModel:        "image-model",
		VideoModel:        "video-model",
		MaxTextRetries:    2,
		TextRetryDelay:    time.Millisecond,
		MaxImageRetries:   2,
		ImageRetryDelay:   time.Millisecond,
		MaxVideoRetries:   1,
		VideoRetryDelay:   time.Millisecond,
		VideoPollInterval: 15 * time.Second,
		VideoPollTimeout:  10 * time.Minute,
	}
	return pc, gc
}

type testEnv struct {
	social *fakeSocial
	gen    *fakeGen
	fetch  *fakeFetch
	clock  *fakeClock
	stats  *bus.Stats
	queue  *bus.Queue
	pipe   *Pipeline
}

func newTestEnv() *testEnv {
	pc, gc := testConfigs()
	social := newFakeSocial()
	gen := &fakeGen{}
	fetch := &fakeFetch{data: map[string][]byte{}}
	clock := newFakeClock()
	stats := &bus.Stats{}
	queue := bus.NewQueue(pc.QueueCapacity, stats)
	limiter := NewRateLimiter(time.Microsecond, time.Microsecond)

	pipe := New(Deps{
		Social:   social,
		Gen:      gen,
		Fetch:    fetch,
		Limiter:  limiter,
		Dedup:    NewDedupCache(pc.DedupCapacity),
		Queue:    queue,
		Stats:    stats,
		Notifier: NewNotifier(social, limiter, "did:plc:dev", "dev.example.com", social.handle),
		Clock:    clock,
	}, pc, gc)

	return &testEnv{social: social, gen: gen, fetch: fetch, clock: clock, stats: stats, queue: queue, pipe: pipe}
}

// singlePost builds a one-post thread by the given author.
func singlePost(authorDID, handle, text string) *bsky.ThreadNode {
	return &bsky.ThreadNode{
		Type: threadViewType,
		Post: &bsky.Post{
			URI:    "at://" + authorDID + "/app.bsky.feed.post/abc",
			CID:    "cid-abc",
			Author: bsky.Author{DID: authorDID, Handle: handle, DisplayName: "Someone"},
			Record: bsky.PostRecord{Text: text},
		},
	}
}

// threadOfDepth chains depth posts, leaf last, alternating authors.
func threadOfDepth(depth int) *bsky.ThreadNode {
	var node *bsky.ThreadNode
	for i := 0; i < depth; i++ {
		n := singlePost(fmt.Sprintf("did:plc:user%d", i%2), fmt.Sprintf("user%d.example.com", i%2),
			fmt.Sprintf("message %d", i))
		n.Post.URI = fmt.Sprintf("at://did:plc:user%d/app.bsky.feed.post/p%d", i%2, i)
		n.Parent = node
		node = n
	}
	return node
}
