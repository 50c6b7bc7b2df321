package bsky

import (
	"context"
	"net/url"
	"strconv"
)

// GetConvoForMembers returns (creating if needed) the DM conversation with
// the given members.
func (c *Client) GetConvoForMembers(ctx context.Context, members []string) (string, error) {
	params := url.Values{}
	for _, m := range members {
		params.Add("members", m)
	}
	var out struct {
		Convo struct {
			ID string `json:"id"`
		} `json:"convo"`
	}
	if err := c.query(ctx, "chat.bsky.convo.getConvoForMembers", params, &out); err != nil {
		return "", err
	}
	return out.Convo.ID, nil
}

// SendDM sends a text message into a DM conversation.
func (c *Client) SendDM(ctx context.Context, convoID, text string) error {
	in := map[string]any{
		"convoId": convoID,
		"message": map[string]string{"text": text},
	}
	return c.procedure(ctx, "chat.bsky.convo.sendMessage", in, nil)
}

// GetDMMessages returns the most recent messages in a conversation,
// newest first.
func (c *Client) GetDMMessages(ctx context.Context, convoID string, limit int) ([]DMMessage, error) {
	params := url.Values{}
	params.Set("convoId", convoID)
	params.Set("limit", strconv.Itoa(limit))
	var out struct {
		Messages []DMMessage `json:"messages"`
	}
	if err := c.query(ctx, "chat.bsky.convo.getMessages", params, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}
