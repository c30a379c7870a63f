package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	Subject string `json:"sub_name"`
	jwt.RegisteredClaims
}

type AccountCreation struct {
	Platform    string `json:"platform"`
	AccountName string `json:"account_name"`
	Credential  string `json:"credential"`
}

type AccountUpdate struct {
	AccountName *string `json:"account_name"`
	Connected   *bool   `json:"connected"`
}

// MediaMeta carries what the server cannot read from the upload itself,
// matched to files by position.
type MediaMeta struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

type PostCreation struct {
	Content        string      `json:"content"`
	Hashtags       []string    `json:"hashtags"`
	ScheduledAt    *time.Time  `json:"scheduled_at"`
	TargetAccounts []string    `json:"target_accounts"`
	MediaMeta      []MediaMeta `json:"media_meta"`
	PublishNow     bool        `json:"publish_now"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Content string `json:"content"`
}

type SchedulerStatus struct {
	Active   bool   `json:"active"`
	Interval string `json:"interval"`
}
