package publish

import (
	"context"
)

var _ Publisher = (*XPublisher)(nil)

// XPublisher posts through the v2 tweets endpoint. Media upload needs a
// different credential grade than the posting scope this app requests, so an
// image request degrades to a text-only post with a warning.
type XPublisher struct {
	c       *client
	apiBase string
}

func NewXPublisher(c *client, apiBase string) *XPublisher {
	return &XPublisher{c: c, apiBase: apiBase}
}

func (p *XPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := p.c.postJSON(ctx, "x", p.apiBase+"/tweets", req.AccessToken, map[string]string{
		"text": req.Text,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, &APIError{Platform: "x", Message: "tweet response missing id"}
	}

	result := &Result{PostID: resp.Data.ID}
	if req.ImageURL != "" {
		result.Warning = "image upload is not available for this connection; posted text only"
	}
	return result, nil
}
