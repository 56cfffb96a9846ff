package storywall

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Content length bounds, counted in runes after trimming.
	MinContentLength  = 10
	MaxContentLength  = 2000
	MaxTitleLength    = 200
	MaxLocationLength = 100
)

// Tag-pair removal for stored markup injection. Unmatched or malformed tags
// are left as literal text; encoding untrusted story text is the render
// layer's responsibility, not ours.
var (
	scriptTagPattern = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	iframeTagPattern = regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)
)

func stripMarkup(s string) string {
	s = scriptTagPattern.ReplaceAllString(s, "")
	return iframeTagPattern.ReplaceAllString(s, "")
}

// ValidateSubmission checks and sanitizes a submission. It returns a story
// ready for insertion, or a *ValidationError describing the first rejection.
// It is the authority on content bounds; any client-side validation is UX
// only.
func ValidateSubmission(sub StorySubmission) (*Story, error) {
	if sub.Content == "" {
		return nil, newValidationError(InvalidContent, "Story content is required")
	}

	content := strings.TrimSpace(sub.Content)
	if utf8.RuneCountInString(content) < MinContentLength {
		return nil, newValidationError(ContentTooShort, "Story must be at least 10 characters long")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, newValidationError(ContentTooLong, "Story must be less than 2000 characters")
	}

	title := strings.TrimSpace(sub.Title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, newValidationError(TitleTooLong, "Title must be less than 200 characters")
	}

	location := strings.TrimSpace(sub.Location)
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return nil, newValidationError(LocationTooLong, "Location must be less than 100 characters")
	}

	content = stripMarkup(content)
	title = stripMarkup(title)
	location = stripMarkup(location)

	return NewStory(optional(title), content, optional(location)), nil
}

// optional normalizes an empty string to absent.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
