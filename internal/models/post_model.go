package models

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPosting   PostStatus = "posting"
	PostStatusPosted    PostStatus = "posted"
	PostStatusFailed    PostStatus = "failed"
)

const (
	MaxContentLength = 2200
	MaxMediaItems    = 10
)

type Post struct {
	ID             string                   `db:"id" json:"id"`
	Content        string                   `db:"content" json:"content"`
	Media          []MediaItem              `db:"media" json:"media"`
	TargetAccounts []string                 `db:"target_accounts" json:"target_accounts"`
	ScheduledAt    *time.Time               `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status         PostStatus               `db:"status" json:"status"`
	Results        map[string]AccountResult `db:"results" json:"results,omitempty"`
	ErrorSummary   string                   `db:"error_summary" json:"error_summary,omitempty"`
	CreatedAt      time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                `db:"updated_at" json:"updated_at"`
	PublishedAt    *time.Time               `db:"published_at" json:"published_at,omitempty"`
}

// AccountResult is the outcome of one publish call. Exactly one of URL or
// ErrorMessage is meaningful; a success without a URL leaves both empty.
type AccountResult struct {
	URL          string `json:"url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (r AccountResult) Failed() bool {
	return r.ErrorMessage != ""
}

// Outcome is the terminal state written once a dispatch has been aggregated.
type Outcome struct {
	Status       PostStatus
	Results      map[string]AccountResult
	ErrorSummary string
	PublishedAt  *time.Time
}

func (s PostStatus) Terminal() bool {
	return s == PostStatusPosted || s == PostStatusFailed
}

// IsOverdue reports whether a still-scheduled post has passed its due time.
// It is a display hint; the scheduler does not treat overdue posts differently.
func (p *Post) IsOverdue(now time.Time) bool {
	return p.Status == PostStatusScheduled && p.ScheduledAt != nil && p.ScheduledAt.Before(now)
}

func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	if p.Media != nil {
		c.Media = append([]MediaItem(nil), p.Media...)
	}
	if p.TargetAccounts != nil {
		c.TargetAccounts = append([]string(nil), p.TargetAccounts...)
	}
	if p.ScheduledAt != nil {
		t := *p.ScheduledAt
		c.ScheduledAt = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	if p.Results != nil {
		c.Results = make(map[string]AccountResult, len(p.Results))
		for k, v := range p.Results {
			c.Results[k] = v
		}
	}
	return &c
}
