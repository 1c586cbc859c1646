package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/publish"
	"github.com/openpromo/pubflow/app/social"
)

// commentPacing is the fixed delay between processed comments. Sequential
// sends on one account are deliberate: parallel sends risk rate-limit bans.
const commentPacing = 1500 * time.Millisecond

// Summary is the outcome of one poller pass, returned by the scheduled
// endpoint for observability.
type Summary struct {
	Processed int      `json:"processed"`
	Replies   int      `json:"replies"`
	DMsSent   int      `json:"dmsSent"`
	Errors    int      `json:"errors"`
	DebugLog  []string `json:"debugLog"`
}

// CredentialResolver is the slice of the social service the poller needs.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string, p *platform.Platform) (*social.Credentials, error)
}

// Poller scans enabled comment-to-DM automations, replies to new matching
// comments and follows up with a private message. One pass iterates users
// sequentially and automations within a user sequentially.
// A Poller is safe for concurrent passes: the scheduler's workers and the
// internal run endpoint may overlap, so it holds no per-pass mutable state.
type Poller struct {
	automations database.AutomationRepository
	catalog     *platform.Catalog
	creds       CredentialResolver
	client      CommentAPI
	pacing      time.Duration
}

func NewPoller(automations database.AutomationRepository, catalog *platform.Catalog,
	creds CredentialResolver, client CommentAPI) *Poller {
	return &Poller{
		automations: automations,
		catalog:     catalog,
		creds:       creds,
		client:      client,
		pacing:      commentPacing,
	}
}

// Run executes one pass for the given platform. Individual automation and
// comment failures are counted and logged, never abort the pass.
func (p *Poller) Run(ctx context.Context, platformKey string) (*Summary, error) {
	plat := p.catalog.Get(platformKey)
	if plat == nil {
		return nil, fmt.Errorf("unsupported platform %s", platformKey)
	}

	automations, err := p.automations.GetEnabledByPlatform(platformKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load automations: %w", err)
	}

	summary := &Summary{DebugLog: []string{}}

	for _, group := range groupByUser(automations) {
		creds, err := p.creds.Resolve(ctx, group.userID, plat)
		if err != nil {
			summary.Errors++
			summary.log("user %s skipped: %v", group.userID, err)
			slog.Warn("Poller skipping user", "user_id", group.userID, "platform", platformKey, "error", err)
			continue
		}

		for _, automation := range group.automations {
			p.processAutomation(ctx, automation, creds, summary)
		}
	}

	slog.Info("Automation pass finished", "platform", platformKey,
		"processed", summary.Processed, "replies", summary.Replies,
		"dms_sent", summary.DMsSent, "errors", summary.Errors)

	return summary, nil
}

type userGroup struct {
	userID      string
	automations []database.Automation
}

// groupByUser keeps the repository's user ordering while bucketing.
func groupByUser(automations []database.Automation) []userGroup {
	var groups []userGroup
	index := map[string]int{}

	for _, a := range automations {
		i, ok := index[a.UserID]
		if !ok {
			i = len(groups)
			index[a.UserID] = i
			groups = append(groups, userGroup{userID: a.UserID})
		}
		groups[i].automations = append(groups[i].automations, a)
	}

	return groups
}

func (p *Poller) processAutomation(ctx context.Context, automation database.Automation, creds *social.Credentials, summary *Summary) {
	if automation.Keyword == "" || automation.PostRef == "" {
		summary.log("automation %s skipped: missing keyword or post reference", automation.ID)
		return
	}

	comments, err := p.client.FetchComments(ctx, creds.AccessToken, automation.PostRef)
	if err != nil {
		summary.Errors++
		summary.log("automation %s: comment fetch failed: %v", automation.ID, publish.Truncate(err.Error(), 120))
		slog.Warn("Comment fetch failed", "automation_id", automation.ID, "post_ref", automation.PostRef, "error", err)
		return
	}

	candidates := p.filterComments(automation, creds, comments)
	if len(candidates) == 0 {
		// An empty pass leaves the cursor untouched.
		return
	}

	dmsSent := 0
	newest := candidates[0]

	for i, comment := range candidates {
		if i > 0 {
			sleepCtx(ctx, p.pacing)
		}

		if comment.Timestamp.After(newest.Timestamp) {
			newest = comment
		}

		firstName := firstNameOf(comment)

		if len(automation.ReplyVariants) > 0 {
			reply := substitute(automation.ReplyVariants[rand.Intn(len(automation.ReplyVariants))], firstName)
			if err := p.client.Reply(ctx, creds.AccessToken, comment.ID, reply); err != nil {
				summary.Errors++
				summary.log("automation %s: reply to %s failed: %v", automation.ID, comment.ID, publish.Truncate(err.Error(), 120))
				slog.Warn("Public reply failed", "automation_id", automation.ID, "comment_id", comment.ID, "error", err)
			} else {
				summary.Replies++
			}
		}

		mechanism, err := p.client.SendDM(ctx, creds.AccessToken, creds.AccountID, comment.ID, comment.AuthorID, substitute(automation.DMTemplate, firstName))
		if err != nil {
			summary.Errors++
			summary.log("automation %s: dm for %s failed: %v", automation.ID, comment.ID, publish.Truncate(err.Error(), 120))
			slog.Warn("DM delivery failed", "automation_id", automation.ID, "comment_id", comment.ID, "error", err)
		} else {
			dmsSent++
			summary.DMsSent++
			slog.Debug("DM delivered", "automation_id", automation.ID, "comment_id", comment.ID, "mechanism", mechanism)
		}

		summary.Processed++
	}

	if err := p.automations.UpdateCursor(automation.ID, newest.ID, time.Now().UTC(), len(candidates), dmsSent); err != nil {
		summary.Errors++
		summary.log("automation %s: cursor update failed: %v", automation.ID, publish.Truncate(err.Error(), 120))
		slog.Error("Cursor update failed", "automation_id", automation.ID, "error", err)
	}
}

// filterComments drops comments at or before the cursor, the automation
// account's own comments, and comments not containing the trigger keyword.
func (p *Poller) filterComments(automation database.Automation, creds *social.Credentials, comments []Comment) []Comment {
	keyword := strings.ToLower(automation.Keyword)
	ownUsername := strings.ToLower(creds.AccountUsername)

	var candidates []Comment
	for _, comment := range comments {
		if comment.ID == "" || comment.ID == automation.LastCommentID {
			continue
		}
		if automation.LastProcessedAt != nil && !comment.Timestamp.After(*automation.LastProcessedAt) {
			continue
		}
		if comment.AuthorID != "" && comment.AuthorID == creds.AccountID {
			continue
		}
		if ownUsername != "" && strings.ToLower(comment.Username) == ownUsername {
			continue
		}
		if !strings.Contains(strings.ToLower(comment.Text), keyword) {
			continue
		}
		candidates = append(candidates, comment)
	}

	return candidates
}

// firstNameOf extracts the commenter's first name: the first token of the
// display name split on whitespace, dots, or underscores. The caser is built
// per call; cases.Caser carries mutable state and cannot be shared.
func firstNameOf(comment Comment) string {
	name := comment.AuthorName
	if name == "" {
		name = comment.Username
	}
	if name == "" {
		return "there"
	}

	token := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '.' || r == '_'
	})
	if len(token) == 0 {
		return "there"
	}

	return cases.Title(language.Und).String(strings.ToLower(token[0]))
}

func substitute(template, firstName string) string {
	return strings.NewReplacer("{first_name}", firstName, "{name}", firstName).Replace(template)
}

func (s *Summary) log(format string, args ...any) {
	s.DebugLog = append(s.DebugLog, fmt.Sprintf(format, args...))
}


func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
