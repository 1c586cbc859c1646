package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openpromo/pubflow/app/publish"
)

// apiTimeout bounds every comment fetch/reply/DM call.
const apiTimeout = 8 * time.Second

// Comment is one platform comment in canonical shape, whatever field variant
// it was fetched with.
type Comment struct {
	ID         string
	Text       string
	AuthorID   string
	Username   string
	AuthorName string
	Timestamp  time.Time
}

// CommentAPI is the platform surface the poller needs: fetch recent comments
// on a post, reply publicly, and deliver a private message.
type CommentAPI interface {
	FetchComments(ctx context.Context, accessToken, postRef string) ([]Comment, error)
	Reply(ctx context.Context, accessToken, commentID, text string) error
	SendDM(ctx context.Context, accessToken, accountID, commentID, authorID, text string) (string, error)
}

var _ CommentAPI = (*GraphCommentClient)(nil)

// GraphCommentClient talks to the Graph API family (Instagram/Facebook).
// Comment field shapes vary with the issuing credential type, so fetching
// walks an ordered list of field-set variants and keeps the first one that
// answers without error.
type GraphCommentClient struct {
	apiBase    string
	httpClient *http.Client
	userAgent  string
}

func NewGraphCommentClient(apiBase string, httpClient *http.Client, userAgent string) *GraphCommentClient {
	return &GraphCommentClient{apiBase: apiBase, httpClient: httpClient, userAgent: userAgent}
}

// fieldVariants are ordered newest-credential-shape first.
var fieldVariants = []string{
	"id,text,username,from,timestamp",
	"id,text,from{id,name},created_time",
	"id,message,from,created_time",
}

type rawComment struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Message  string `json:"message"`
	Username string `json:"username"`
	From     *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"from"`
	Timestamp   string `json:"timestamp"`
	CreatedTime string `json:"created_time"`
}

func (c *GraphCommentClient) FetchComments(ctx context.Context, accessToken, postRef string) ([]Comment, error) {
	strategies := make([]publish.Strategy[[]Comment], 0, len(fieldVariants))
	for _, fields := range fieldVariants {
		strategies = append(strategies, publish.Strategy[[]Comment]{
			Name: "fields=" + fields,
			Run: func(ctx context.Context) ([]Comment, error) {
				return c.fetchWithFields(ctx, accessToken, postRef, fields)
			},
		})
	}

	comments, _, err := publish.TryEach(ctx, "comment fetch", strategies)
	return comments, err
}

func (c *GraphCommentClient) fetchWithFields(ctx context.Context, accessToken, postRef, fields string) ([]Comment, error) {
	endpoint := fmt.Sprintf("%s/%s/comments?fields=%s&limit=50", c.apiBase, postRef, url.QueryEscape(fields))

	var resp struct {
		Data []rawComment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, accessToken, nil, &resp); err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(resp.Data))
	for _, raw := range resp.Data {
		comments = append(comments, normalizeComment(raw))
	}
	return comments, nil
}

func normalizeComment(raw rawComment) Comment {
	comment := Comment{
		ID:       raw.ID,
		Text:     raw.Text,
		Username: raw.Username,
	}
	if comment.Text == "" {
		comment.Text = raw.Message
	}
	if raw.From != nil {
		comment.AuthorID = raw.From.ID
		comment.AuthorName = raw.From.Name
		if comment.Username == "" {
			comment.Username = raw.From.Username
		}
	}

	ts := raw.Timestamp
	if ts == "" {
		ts = raw.CreatedTime
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if parsed, err := time.Parse(layout, ts); err == nil {
			comment.Timestamp = parsed.UTC()
			break
		}
	}

	return comment
}

func (c *GraphCommentClient) Reply(ctx context.Context, accessToken, commentID, text string) error {
	endpoint := fmt.Sprintf("%s/%s/replies", c.apiBase, commentID)
	return c.do(ctx, http.MethodPost, endpoint, accessToken, map[string]string{"message": text}, nil)
}

// SendDM walks the platform's delivery mechanisms in order: the private
// reply-to-comment channel first, then a plain conversation message to the
// author. The first mechanism that succeeds wins.
func (c *GraphCommentClient) SendDM(ctx context.Context, accessToken, accountID, commentID, authorID, text string) (string, error) {
	strategies := []publish.Strategy[string]{
		{
			Name: "private_reply",
			Run: func(ctx context.Context) (string, error) {
				endpoint := fmt.Sprintf("%s/%s/messages", c.apiBase, accountID)
				payload := map[string]any{
					"recipient": map[string]string{"comment_id": commentID},
					"message":   map[string]string{"text": text},
				}
				return "private_reply", c.do(ctx, http.MethodPost, endpoint, accessToken, payload, nil)
			},
		},
		{
			Name: "conversation",
			Run: func(ctx context.Context) (string, error) {
				if authorID == "" {
					return "", fmt.Errorf("no author id for conversation message")
				}
				endpoint := fmt.Sprintf("%s/me/messages", c.apiBase)
				payload := map[string]any{
					"recipient": map[string]string{"id": authorID},
					"message":   map[string]string{"text": text},
				}
				return "conversation", c.do(ctx, http.MethodPost, endpoint, accessToken, payload, nil)
			},
		},
	}

	_, mechanism, err := publish.TryEach(ctx, "dm delivery", strategies)
	return mechanism, err
}

func (c *GraphCommentClient) do(ctx context.Context, method, endpoint, accessToken string, payload, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, publish.Truncate(string(data), 200))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
