package publish

import (
	"context"
	"fmt"
	"log/slog"
)

var (
	_ Publisher = (*FacebookPublisher)(nil)
	_ Commenter = (*FacebookPublisher)(nil)
)

// FacebookPublisher posts to a Facebook page feed through the Graph API.
// Image posts go through the photos edge; when that fails the text-only post
// still goes out and the result carries a warning instead of failing overall.
type FacebookPublisher struct {
	c       *client
	apiBase string
}

func NewFacebookPublisher(c *client, apiBase string) *FacebookPublisher {
	return &FacebookPublisher{c: c, apiBase: apiBase}
}

// graphResponse covers the identifier variants the Graph API returns: photo
// posts answer with post_id, feed posts with id.
type graphResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (r graphResponse) postID() string {
	if r.PostID != "" {
		return r.PostID
	}
	return r.ID
}

func (p *FacebookPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if req.ImageURL != "" {
		var resp graphResponse
		err := p.c.postJSON(ctx, "facebook", fmt.Sprintf("%s/%s/photos", p.apiBase, req.AccountID), req.AccessToken, map[string]string{
			"url":     req.ImageURL,
			"caption": req.Text,
		}, &resp)
		if err == nil {
			return &Result{PostID: resp.postID()}, nil
		}

		slog.Warn("Facebook photo post failed, falling back to text-only", "account_id", req.AccountID, "error", err)

		result, textErr := p.publishText(ctx, req)
		if textErr != nil {
			return nil, textErr
		}
		result.Warning = "image attachment failed; posted without the requested image"
		return result, nil
	}

	return p.publishText(ctx, req)
}

func (p *FacebookPublisher) publishText(ctx context.Context, req Request) (*Result, error) {
	var resp graphResponse
	err := p.c.postJSON(ctx, "facebook", fmt.Sprintf("%s/%s/feed", p.apiBase, req.AccountID), req.AccessToken, map[string]string{
		"message": req.Text,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &Result{PostID: resp.postID()}, nil
}

func (p *FacebookPublisher) Comment(ctx context.Context, accessToken, accountID, postID, text string) (string, error) {
	var resp graphResponse
	err := p.c.postJSON(ctx, "facebook", fmt.Sprintf("%s/%s/comments", p.apiBase, postID), accessToken, map[string]string{
		"message": text,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.postID(), nil
}
