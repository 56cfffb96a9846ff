package storywall

import (
	"fmt"
	"time"
)

// NowFunc returns the current time. Tests swap it out to freeze the clock.
var NowFunc func() time.Time = time.Now

// A Story is a single anonymously submitted text entry, the unit of content
// of the board. Title and Location are optional and map to SQL NULLs when
// absent.
type Story struct {
	ID         int64     `db:"id" json:"id"`
	Title      *string   `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	Location   *string   `db:"location" json:"location"`
	Votes      int       `db:"votes" json:"votes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	CreatedBy  string    `db:"created_by" json:"created_by"`

	// TimeAgo is computed at read time from CreatedAt, never stored.
	TimeAgo string `db:"-" json:"timeAgo,omitempty"`
}

// A StorySubmission is the raw submit payload, before any validation.
type StorySubmission struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Location string `json:"location"`
}

// NewStory builds an approved, zero-vote anonymous story from already
// sanitized fields. CreatedAt is a placeholder until the store assigns the
// authoritative creation timestamp on insert.
func NewStory(title *string, content string, location *string) *Story {
	return &Story{
		Title:      title,
		Content:    content,
		Location:   location,
		Votes:      0,
		CreatedAt:  NowFunc(),
		IsApproved: true,
		CreatedBy:  "anonymous",
	}
}

// TimeAgo renders the age of a story relative to now. Units are
// integer-floored; anything older than 30 days falls back to a plain date.
func TimeAgo(createdAt time.Time, now time.Time) string {
	minutes := int(now.Sub(createdAt).Minutes())
	hours := minutes / 60
	days := hours / 24

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
	case hours < 24:
		return fmt.Sprintf("About %d hour%s ago", hours, plural(hours))
	case days == 1:
		return "About 1 day ago"
	case days < 30:
		return fmt.Sprintf("About %d days ago", days)
	default:
		return fmt.Sprintf("%d/%d/%d", int(createdAt.Month()), createdAt.Day(), createdAt.Year())
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
