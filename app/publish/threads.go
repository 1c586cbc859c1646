package publish

import (
	"context"
	"fmt"
)

var (
	_ Publisher = (*ThreadsPublisher)(nil)
	_ Commenter = (*ThreadsPublisher)(nil)
)

// ThreadsPublisher uses the Threads container flow: create a container (TEXT
// or IMAGE), then publish it. Replies reuse the same flow with reply_to_id.
type ThreadsPublisher struct {
	c       *client
	apiBase string
}

func NewThreadsPublisher(c *client, apiBase string) *ThreadsPublisher {
	return &ThreadsPublisher{c: c, apiBase: apiBase}
}

func (p *ThreadsPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	payload := map[string]string{
		"media_type": "TEXT",
		"text":       req.Text,
	}
	if req.ImageURL != "" {
		payload["media_type"] = "IMAGE"
		payload["image_url"] = req.ImageURL
	}

	id, err := p.createAndPublish(ctx, req.AccessToken, req.AccountID, payload)
	if err != nil {
		return nil, err
	}

	return &Result{PostID: id}, nil
}

func (p *ThreadsPublisher) Comment(ctx context.Context, accessToken, accountID, postID, text string) (string, error) {
	return p.createAndPublish(ctx, accessToken, accountID, map[string]string{
		"media_type":  "TEXT",
		"text":        text,
		"reply_to_id": postID,
	})
}

func (p *ThreadsPublisher) createAndPublish(ctx context.Context, accessToken, accountID string, payload map[string]string) (string, error) {
	var container graphResponse
	err := p.c.postJSON(ctx, "threads", fmt.Sprintf("%s/%s/threads", p.apiBase, accountID), accessToken, payload, &container)
	if err != nil {
		return "", err
	}
	if container.ID == "" {
		return "", &APIError{Platform: "threads", Message: "container response missing id"}
	}

	var published graphResponse
	err = p.c.postJSON(ctx, "threads", fmt.Sprintf("%s/%s/threads_publish", p.apiBase, accountID), accessToken, map[string]string{
		"creation_id": container.ID,
	}, &published)
	if err != nil {
		return "", err
	}

	return published.postID(), nil
}
