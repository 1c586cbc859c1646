package publish

import (
	"context"
	"net/url"
	"strings"
)

var _ Publisher = (*RedditPublisher)(nil)

// RedditPublisher submits a post to the connected subreddit. Reddit mandates
// a title; when the content has none the first words of the body stand in.
// The API answers with an absolute permalink, which becomes the post
// identifier directly (no URL template step).
type RedditPublisher struct {
	c       *client
	apiBase string
}

func NewRedditPublisher(c *client, apiBase string) *RedditPublisher {
	return &RedditPublisher{c: c, apiBase: apiBase}
}

func (p *RedditPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	title := req.Title
	if title == "" {
		title = Truncate(req.Text, 120)
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("sr", req.AccountID)
	form.Set("title", title)

	if req.ImageURL != "" {
		form.Set("kind", "link")
		form.Set("url", req.ImageURL)
	} else {
		form.Set("kind", "self")
		form.Set("text", req.Text)
	}

	var resp struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				URL  string `json:"url"`
				Name string `json:"name"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := p.c.postForm(ctx, "reddit", p.apiBase+"/api/submit", req.AccessToken, form, &resp); err != nil {
		return nil, err
	}

	if len(resp.JSON.Errors) > 0 {
		return nil, &APIError{Platform: "reddit", Message: formatRedditErrors(resp.JSON.Errors)}
	}

	postID := resp.JSON.Data.URL
	if postID == "" {
		postID = resp.JSON.Data.Name
	}
	if postID == "" {
		return nil, &APIError{Platform: "reddit", Message: "submit response missing url"}
	}

	return &Result{PostID: postID}, nil
}

func formatRedditErrors(errs [][]any) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if len(e) > 1 {
			if msg, ok := e[1].(string); ok {
				parts = append(parts, msg)
				continue
			}
		}
		parts = append(parts, "unknown error")
	}
	return Truncate(strings.Join(parts, "; "), 200)
}
