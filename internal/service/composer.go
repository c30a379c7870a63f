package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/crosspost/internal/models"
)

// ContentGenerator drafts post text from a prompt.
type ContentGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Composer builds the final post text. The generator is optional; a nil
// generator means suggestions are unavailable.
type Composer struct {
	generator ContentGenerator
}

func NewComposer(generator ContentGenerator) *Composer {
	return &Composer{generator: generator}
}

// Compose appends hashtags to content as "content\n\n#a #b".
func (c *Composer) Compose(content string, hashtags []string) string {
	tags := normalizeHashtags(hashtags)
	content = strings.TrimSpace(content)
	if len(tags) == 0 {
		return content
	}

	line := "#" + strings.Join(tags, " #")
	if content == "" {
		return line
	}
	return content + "\n\n" + line
}

// ComposeChecked is Compose plus the length limit.
func (c *Composer) ComposeChecked(content string, hashtags []string) (string, error) {
	text := c.Compose(content, hashtags)
	if n := utf8.RuneCountInString(text); n > models.MaxContentLength {
		return "", validationErrorf("content is %d characters, the limit is %d", n, models.MaxContentLength)
	}
	return text, nil
}

func (c *Composer) CanGenerate() bool {
	return c.generator != nil
}

func (c *Composer) Suggest(ctx context.Context, prompt string) (string, error) {
	if c.generator == nil {
		return "", ErrGeneratorDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", validationErrorf("prompt is empty")
	}

	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func normalizeHashtags(hashtags []string) []string {
	seen := make(map[string]struct{}, len(hashtags))
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimLeft(strings.TrimSpace(h), "#")
		h = strings.Join(strings.Fields(h), "")
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, h)
	}
	return tags
}
