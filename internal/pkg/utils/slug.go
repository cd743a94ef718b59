package utils

import (
	"regexp"
	"strings"
)

const maxSlugLength = 50

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a lowercase DNS label usable as
// <slug>.<root domain>. Names without any usable character yield "explorer".
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "explorer"
	}
	return slug
}
