package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var groupSlugRegex = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

// reservedPaths would shadow or confuse top-level routes when used as a slug or username.
var reservedPaths = map[string]struct{}{
	"admin":   {},
	"auth":    {},
	"about":   {},
	"create":  {},
	"follow":  {},
	"group":   {},
	"health":  {},
	"media":   {},
	"metrics": {},
	"posts":   {},
	"profile": {},
	"static":  {},
}

// IsReservedPath reports whether name collides with a top-level route segment.
func IsReservedPath(name string) bool {
	_, ok := reservedPaths[strings.ToLower(name)]
	return ok
}

// ValidateGroupSlug validates the URL identifier of a group.
func ValidateGroupSlug(slug string) error {
	if !groupSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 1-50 characters of lowercase letters, numbers, hyphens and underscores")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}
	return nil
}

// ValidateGroupTitle requires a non-blank title of at most 200 characters.
func ValidateGroupTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len([]rune(title)) > 200 {
		return fmt.Errorf("title must not exceed 200 characters")
	}
	return nil
}
