package database

import (
	"time"
)

// ContentItem is a unit of publishable material authored elsewhere in the
// application. The publish path only ever merges into Metadata and advances
// Status/AutoCommentPhase; it never discards keys written by other flows.
type ContentItem struct {
	ID                 string
	UserID             string
	Title              string
	Body               string
	Status             string // draft, published
	Metadata           map[string]any
	AutoCommentEnabled bool
	AutoCommentPhase   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SocialConnection holds one user's credentials for one platform. Tokens are
// stored encrypted and only decrypted on demand by the credentials service.
type SocialConnection struct {
	ID              string
	UserID          string
	Platform        string
	AccountID       string
	AccountUsername string
	AccessTokenEnc  []byte
	RefreshTokenEnc []byte
	TokenExpiresAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Automation is a persistent comment-to-DM rule. LastCommentID and
// LastProcessedAt form the processing cursor; the poller is the only writer.
type Automation struct {
	ID              string
	UserID          string
	Enabled         bool
	Platforms       []string
	Keyword         string
	PostRef         string
	ReplyVariants   []string
	DMTemplate      string
	TriggerCount    int
	DMCount         int
	LastCommentID   string
	LastProcessedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CommentJob tracks before/after auto-comment progress for a content item.
type CommentJob struct {
	ContentID   string
	BeforeDone  int
	BeforeTotal int
	AfterDone   int
	AfterTotal  int
	UpdatedAt   time.Time
}
