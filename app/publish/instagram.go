package publish

import (
	"context"
	"fmt"
)

var (
	_ Publisher = (*InstagramPublisher)(nil)
	_ Commenter = (*InstagramPublisher)(nil)
)

// InstagramPublisher publishes through the Graph API's two-step container
// flow: create a media container, then publish it. Instagram has no text-only
// feed post, so a missing image fails validation before any network call.
type InstagramPublisher struct {
	c       *client
	apiBase string
}

func NewInstagramPublisher(c *client, apiBase string) *InstagramPublisher {
	return &InstagramPublisher{c: c, apiBase: apiBase}
}

func (p *InstagramPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if req.ImageURL == "" {
		return nil, ErrImageRequired
	}

	var container graphResponse
	err := p.c.postJSON(ctx, "instagram", fmt.Sprintf("%s/%s/media", p.apiBase, req.AccountID), req.AccessToken, map[string]string{
		"image_url": req.ImageURL,
		"caption":   req.Text,
	}, &container)
	if err != nil {
		return nil, err
	}
	if container.ID == "" {
		return nil, &APIError{Platform: "instagram", Message: "media container response missing id"}
	}

	var published graphResponse
	err = p.c.postJSON(ctx, "instagram", fmt.Sprintf("%s/%s/media_publish", p.apiBase, req.AccountID), req.AccessToken, map[string]string{
		"creation_id": container.ID,
	}, &published)
	if err != nil {
		return nil, err
	}

	return &Result{PostID: published.postID()}, nil
}

func (p *InstagramPublisher) Comment(ctx context.Context, accessToken, accountID, postID, text string) (string, error) {
	var resp graphResponse
	err := p.c.postJSON(ctx, "instagram", fmt.Sprintf("%s/%s/comments", p.apiBase, postID), accessToken, map[string]string{
		"message": text,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.postID(), nil
}
