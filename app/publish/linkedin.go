package publish

import (
	"context"
)

var _ Publisher = (*LinkedInPublisher)(nil)

// LinkedInPublisher creates a UGC post for the member. An image URL is
// attached as article media; LinkedIn hosts the preview itself so no separate
// upload round-trip is needed.
type LinkedInPublisher struct {
	c       *client
	apiBase string
}

func NewLinkedInPublisher(c *client, apiBase string) *LinkedInPublisher {
	return &LinkedInPublisher{c: c, apiBase: apiBase}
}

func (p *LinkedInPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	shareContent := map[string]any{
		"shareCommentary":    map[string]string{"text": req.Text},
		"shareMediaCategory": "NONE",
	}
	if req.ImageURL != "" {
		shareContent["shareMediaCategory"] = "ARTICLE"
		shareContent["media"] = []map[string]any{
			{
				"status":      "READY",
				"originalUrl": req.ImageURL,
				"title":       map[string]string{"text": req.Title},
			},
		}
	}

	payload := map[string]any{
		"author":         "urn:li:person:" + req.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := p.c.postJSON(ctx, "linkedin", p.apiBase+"/ugcPosts", req.AccessToken, payload, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &APIError{Platform: "linkedin", Message: "ugcPosts response missing id"}
	}

	return &Result{PostID: resp.ID}, nil
}
