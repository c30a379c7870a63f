package models

import (
	"time"
)

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformYoutube   = "youtube"
	PlatformTwitter   = "twitter"
	PlatformLinkedin  = "linkedin"
	PlatformTiktok    = "tiktok"
)

type Account struct {
	ID              string     `db:"id" json:"id"`
	Platform        string     `db:"platform" json:"platform"`
	AccountName     string     `db:"account_name" json:"account_name"`
	Credential      string     `db:"credential" json:"-"`
	Connected       bool       `db:"connected" json:"connected"`
	Profile         *Profile   `db:"profile" json:"profile,omitempty"`
	LastPublishedAt *time.Time `db:"last_published_at" json:"last_published_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile is informational data returned by a platform when a credential is validated.
type Profile struct {
	DisplayName   string            `json:"display_name"`
	Username      string            `json:"username"`
	FollowerCount *int64            `json:"follower_count,omitempty"`
	Verified      bool              `json:"verified"`
	AvatarURL     string            `json:"avatar_url,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy so callers can hold a snapshot that later
// registry mutations do not touch.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Profile = a.Profile.Clone()
	if a.LastPublishedAt != nil {
		t := *a.LastPublishedAt
		c.LastPublishedAt = &t
	}
	return &c
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.FollowerCount != nil {
		n := *p.FollowerCount
		c.FollowerCount = &n
	}
	if p.Extra != nil {
		c.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
