package storywall

import "time"

// SortOrder selects how a listing is ordered.
type SortOrder string

const (
	SortNew SortOrder = "new"
	SortTop SortOrder = "top"
	// SortTrending is an alias of SortTop for now; there is no
	// recency-weighted scoring.
	SortTrending SortOrder = "trending"
)

// ParseSortOrder maps a raw query value to a SortOrder, defaulting to
// SortNew for anything it doesn't recognize.
func ParseSortOrder(raw string) SortOrder {
	switch SortOrder(raw) {
	case SortTop:
		return SortTop
	case SortTrending:
		return SortTrending
	default:
		return SortNew
	}
}

// Store is the gateway to the backing story collection. Listing and counting
// only ever see approved stories.
type Store interface {
	Connect() error
	Ping() error
	InsertStory(story *Story) error
	FindStory(id int64) (*Story, error)
	ListStories(sort SortOrder, limit int, offset int) ([]*Story, error)
	// IncrementStoryVotes adds one vote to a story as a single conditional
	// update and returns the authoritative new count. It returns a
	// *NotFoundError when no row matches.
	IncrementStoryVotes(id int64) (int, error)
	// CountStories counts approved stories, restricted to those created at
	// or after since when it is non-nil.
	CountStories(since *time.Time) (int, error)
}
