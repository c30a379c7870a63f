// Package media decides whether a set of media items can be published to a
// platform. Check is pure and performs no I/O.
package media

import (
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	RuleMaxFiles    = "max_files"
	RuleKind        = "kind"
	RuleMixedKinds  = "mixed_kinds"
	RuleMaxSize     = "max_size"
	RuleMinDuration = "min_duration"
	RuleMaxDuration = "max_duration"
	RuleAspectRatio = "aspect_ratio"
)

const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
	GB int64 = 1 << 30
)

type Violation struct {
	Rule    string `json:"rule"`
	MediaID string `json:"media_id,omitempty"`
	Message string `json:"message"`
}

// Rules is one platform's constraint table. Zero values mean "no limit".
type Rules struct {
	MaxFiles        int
	AllowImages     bool
	AllowVideos     bool
	AllowMixed      bool
	MaxImageBytes   int64
	MaxVideoBytes   int64
	MinVideoSeconds float64
	MaxVideoSeconds float64
	MinAspectRatio  float64
	MaxAspectRatio  float64
}

var platformRules = map[string]Rules{
	models.PlatformFacebook: {
		MaxFiles:        10,
		AllowImages:     true,
		AllowVideos:     true,
		AllowMixed:      true,
		MaxImageBytes:   10 * MB,
		MaxVideoBytes:   10 * GB,
		MaxVideoSeconds: 240 * 60,
	},
	models.PlatformInstagram: {
		MaxFiles:        10,
		AllowImages:     true,
		AllowVideos:     true,
		AllowMixed:      true,
		MaxImageBytes:   8 * MB,
		MaxVideoBytes:   300 * MB,
		MinVideoSeconds: 3,
		MaxVideoSeconds: 15 * 60,
		MinAspectRatio:  0.8,
		MaxAspectRatio:  1.91,
	},
	models.PlatformYoutube: {
		MaxFiles:        1,
		AllowVideos:     true,
		MaxVideoBytes:   256 * GB,
		MaxVideoSeconds: 12 * 60 * 60,
	},
	models.PlatformTwitter: {
		MaxFiles:        4,
		AllowImages:     true,
		AllowVideos:     true,
		MaxImageBytes:   5 * MB,
		MaxVideoBytes:   512 * MB,
		MinVideoSeconds: 0.5,
		MaxVideoSeconds: 140,
	},
	models.PlatformLinkedin: {
		MaxFiles:        9,
		AllowImages:     true,
		AllowVideos:     true,
		MaxImageBytes:   8 * MB,
		MaxVideoBytes:   5 * GB,
		MinVideoSeconds: 3,
		MaxVideoSeconds: 15 * 60,
	},
	models.PlatformTiktok: {
		MaxFiles:        35,
		AllowImages:     true,
		AllowVideos:     true,
		MaxImageBytes:   20 * MB,
		MaxVideoBytes:   4 * GB,
		MinVideoSeconds: 3,
		MaxVideoSeconds: 10 * 60,
	},
}

// RulesFor returns the table for a platform and whether one exists.
func RulesFor(platform string) (Rules, bool) {
	r, ok := platformRules[platform]
	return r, ok
}

// Check returns every rule the media set breaks on the given platform.
// Empty media never violates anything; neither does a platform without a table.
func Check(items []models.MediaItem, platform string) []Violation {
	if len(items) == 0 {
		return nil
	}
	rules, ok := platformRules[platform]
	if !ok {
		return nil
	}
	return rules.Check(items)
}

func (r Rules) Check(items []models.MediaItem) []Violation {
	var violations []Violation
	add := func(rule, mediaID, format string, args ...any) {
		violations = append(violations, Violation{Rule: rule, MediaID: mediaID, Message: fmt.Sprintf(format, args...)})
	}

	if r.MaxFiles > 0 && len(items) > r.MaxFiles {
		add(RuleMaxFiles, "", "at most %d files allowed, got %d", r.MaxFiles, len(items))
	}

	var images, videos int
	for _, item := range items {
		switch item.Kind {
		case models.MediaKindImage:
			images++
		case models.MediaKindVideo:
			videos++
		}
	}
	if images > 0 && videos > 0 && !r.AllowMixed {
		add(RuleMixedKinds, "", "images and videos cannot be combined")
	}

	for _, item := range items {
		switch item.Kind {
		case models.MediaKindImage:
			if !r.AllowImages {
				add(RuleKind, item.ID, "images are not supported")
				continue
			}
			if r.MaxImageBytes > 0 && item.SizeBytes > r.MaxImageBytes {
				add(RuleMaxSize, item.ID, "image is %s, limit is %s", formatSize(item.SizeBytes), formatSize(r.MaxImageBytes))
			}
			r.checkAspect(item, add)
		case models.MediaKindVideo:
			if !r.AllowVideos {
				add(RuleKind, item.ID, "videos are not supported")
				continue
			}
			if r.MaxVideoBytes > 0 && item.SizeBytes > r.MaxVideoBytes {
				add(RuleMaxSize, item.ID, "video is %s, limit is %s", formatSize(item.SizeBytes), formatSize(r.MaxVideoBytes))
			}
			if item.DurationSeconds > 0 {
				if r.MinVideoSeconds > 0 && item.DurationSeconds < r.MinVideoSeconds {
					add(RuleMinDuration, item.ID, "video is %.1fs, minimum is %.1fs", item.DurationSeconds, r.MinVideoSeconds)
				}
				if r.MaxVideoSeconds > 0 && item.DurationSeconds > r.MaxVideoSeconds {
					add(RuleMaxDuration, item.ID, "video is %.1fs, maximum is %.1fs", item.DurationSeconds, r.MaxVideoSeconds)
				}
			}
			r.checkAspect(item, add)
		default:
			add(RuleKind, item.ID, "unknown media kind %q", item.Kind)
		}
	}

	return violations
}

func (r Rules) checkAspect(item models.MediaItem, add func(rule, mediaID, format string, args ...any)) {
	ratio := item.AspectRatio()
	if ratio == 0 {
		return
	}
	if r.MinAspectRatio > 0 && ratio < r.MinAspectRatio {
		add(RuleAspectRatio, item.ID, "aspect ratio %.2f is below %.2f", ratio, r.MinAspectRatio)
	} else if r.MaxAspectRatio > 0 && ratio > r.MaxAspectRatio {
		add(RuleAspectRatio, item.ID, "aspect ratio %.2f is above %.2f", ratio, r.MaxAspectRatio)
	}
}

func formatSize(n int64) string {
	switch {
	case n >= GB:
		return fmt.Sprintf("%.1fGB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.1fKB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
