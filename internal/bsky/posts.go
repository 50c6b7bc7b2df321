package bsky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GetPostThread fetches the thread around a post, walking up to depth
// ancestors for context.
func (c *Client) GetPostThread(ctx context.Context, postURI string, depth int) (*ThreadNode, error) {
	params := url.Values{}
	params.Set("uri", postURI)
	params.Set("depth", strconv.Itoa(depth))
	params.Set("parentHeight", strconv.Itoa(depth))

	var out struct {
		Thread *ThreadNode `json:"thread"`
	}
	if err := c.query(ctx, "app.bsky.feed.getPostThread", params, &out); err != nil {
		return nil, err
	}
	return out.Thread, nil
}

// GetPosts hydrates posts by URI.
func (c *Client) GetPosts(ctx context.Context, uris []string) ([]Post, error) {
	params := url.Values{}
	for _, u := range uris {
		params.Add("uris", u)
	}
	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := c.query(ctx, "app.bsky.feed.getPosts", params, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// SendPostParams describes one outbound post.
type SendPostParams struct {
	Text   string
	Reply  *PostReplyRef
	Embed  any
	Facets []Facet
}

// SendPost creates an app.bsky.feed.post record and returns its strong ref.
func (c *Client) SendPost(ctx context.Context, p SendPostParams) (PostRef, error) {
	record := PostRecord{
		Type:      "app.bsky.feed.post",
		Text:      p.Text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Reply:     p.Reply,
		Embed:     p.Embed,
		Facets:    p.Facets,
	}
	in := map[string]any{
		"repo":       c.DID(),
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	var out PostRef
	if err := c.procedure(ctx, "com.atproto.repo.createRecord", in, &out); err != nil {
		return PostRef{}, err
	}
	return out, nil
}

// UploadBlob uploads raw bytes and returns the blob ref for embedding.
func (c *Client) UploadBlob(ctx context.Context, data []byte, contentType string) (BlobRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out struct {
		Blob BlobRef `json:"blob"`
	}
	if err := c.do(req, "com.atproto.repo.uploadBlob", &out); err != nil {
		return nil, err
	}
	if len(out.Blob) == 0 {
		return nil, fmt.Errorf("com.atproto.repo.uploadBlob: empty blob in response")
	}
	return out.Blob, nil
}

// ListNotifications returns the most recent notifications.
func (c *Client) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	var out struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.query(ctx, "app.bsky.notification.listNotifications", params, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// ResolveHandle resolves a handle to its DID.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("handle", handle)
	var out struct {
		DID string `json:"did"`
	}
	if err := c.query(ctx, "com.atproto.identity.resolveHandle", params, &out); err != nil {
		return "", err
	}
	return out.DID, nil
}

// DescribeRepo returns the PDS service endpoint hosting a repo. Used to
// fetch video blobs directly from the author's PDS.
func (c *Client) DescribeRepo(ctx context.Context, did string) (string, error) {
	params := url.Values{}
	params.Set("repo", did)
	var out struct {
		DIDDoc struct {
			Service []struct {
				Type            string `json:"type"`
				ServiceEndpoint string `json:"serviceEndpoint"`
			} `json:"service"`
		} `json:"didDoc"`
	}
	if err := c.query(ctx, "com.atproto.repo.describeRepo", params, &out); err != nil {
		return "", err
	}
	for _, s := range out.DIDDoc.Service {
		if s.Type == "AtprotoPersonalDataServer" {
			return s.ServiceEndpoint, nil
		}
	}
	return "", fmt.Errorf("describeRepo: no PDS endpoint for %s", did)
}
