package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storywall/storywall"
)

// DefaultPageSize is how many stories a controller fetches per page.
const DefaultPageSize = 20

// errClearDelay is how long a transient error stays visible before clearing
// itself.
const errClearDelay = 3 * time.Second

// State is the list controller's loading state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateLoadingMore
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadingMore:
		return "loading-more"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyVoted rejects a vote on a story this client already voted
	// on. No network call is made.
	ErrAlreadyVoted = errors.New("already voted on this story")
	// ErrVoteInFlight rejects a second vote on a story whose previous vote
	// hasn't resolved yet.
	ErrVoteInFlight = errors.New("vote already in flight for this story")
)

// API is the slice of the server the controller talks to.
type API interface {
	ListStories(ctx context.Context, sort string, limit int, offset int) (*ListResponse, error)
	Vote(ctx context.Context, storyID int64) (int, error)
}

// fetchTag records the state a list fetch was issued under. A response whose
// tag no longer matches the controller's current tag is stale and gets
// discarded; there is no call cancellation.
type fetchTag struct {
	sort   string
	offset int
}

// Controller owns the client-visible list state: incremental loading,
// optimistic vote application with rollback, and duplicate-vote suppression
// through the persisted voted-set.
type Controller struct {
	api      API
	voted    *VotedSet
	logger   zerolog.Logger
	pageSize int
	errDelay time.Duration

	mu       sync.Mutex
	state    State
	sortBy   string
	offset   int
	hasMore  bool
	stories  []storywall.Story
	inflight map[int64]bool
	current  fetchTag
	lastErr  string
	errTimer *time.Timer
}

func NewController(api API, voted *VotedSet, logger zerolog.Logger) *Controller {
	return &Controller{
		api:      api,
		voted:    voted,
		logger:   logger,
		pageSize: DefaultPageSize,
		errDelay: errClearDelay,
		state:    StateIdle,
		sortBy:   string(storywall.SortNew),
		hasMore:  true,
		inflight: map[int64]bool{},
	}
}

// Load fetches the first page for the current sort order. It also serves as
// the user-initiated retry after an error.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	sort := c.sortBy
	c.mu.Unlock()

	return c.reload(ctx, sort)
}

// SetSort switches the sort order: the current list is discarded, the offset
// resets and the first page is fetched again.
func (c *Controller) SetSort(ctx context.Context, sort string) error {
	return c.reload(ctx, sort)
}

func (c *Controller) reload(ctx context.Context, sort string) error {
	c.mu.Lock()
	c.sortBy = sort
	c.offset = 0
	c.hasMore = true
	c.stories = nil
	c.state = StateLoading
	tag := fetchTag{sort: sort, offset: 0}
	c.current = tag
	c.mu.Unlock()

	return c.fetch(ctx, tag, false)
}

// LoadMore fetches the next page and appends it. It is a no-op unless the
// controller is loaded, has more to fetch and isn't already loading.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoaded || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoadingMore
	tag := fetchTag{sort: c.sortBy, offset: c.offset}
	c.current = tag
	c.mu.Unlock()

	return c.fetch(ctx, tag, true)
}

func (c *Controller) fetch(ctx context.Context, tag fetchTag, appendPage bool) error {
	page, err := c.api.ListStories(ctx, tag.sort, c.pageSize, tag.offset)

	c.mu.Lock()
	defer c.mu.Unlock()

	if tag != c.current {
		// a reload happened while this fetch was in flight; its result
		// must not overwrite newer state
		c.logger.Debug().Str("sort", tag.sort).Int("offset", tag.offset).Msg("Discarding stale page")
		return nil
	}

	if err != nil {
		c.state = StateError
		c.setErrorLocked("Failed to load stories")
		return err
	}

	if appendPage {
		c.stories = append(c.stories, page.Stories...)
	} else {
		c.stories = page.Stories
	}
	c.hasMore = page.HasMore
	c.offset = tag.offset + len(page.Stories)
	c.state = StateLoaded

	return nil
}

// Vote upvotes a story. The local count is incremented before the call and
// reconciled to the server's authoritative count on success; on failure the
// exact inverse of the optimistic increment is applied and a transient error
// surfaces. At most one vote per story may be in flight.
func (c *Controller) Vote(ctx context.Context, storyID int64) error {
	c.mu.Lock()
	if c.inflight[storyID] {
		c.mu.Unlock()
		return ErrVoteInFlight
	}
	if c.voted.Has(storyID) {
		c.setErrorLocked("You have already voted on this story.")
		c.mu.Unlock()
		return ErrAlreadyVoted
	}
	c.inflight[storyID] = true
	c.addVotesLocked(storyID, 1)
	c.mu.Unlock()

	votes, err := c.api.Vote(ctx, storyID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, storyID)

	if err != nil {
		// inverse of the optimistic increment above
		c.addVotesLocked(storyID, -1)
		c.setErrorLocked("Failed to record vote. Please try again.")
		return err
	}

	if err := c.voted.Add(storyID); err != nil {
		c.logger.Warn().Err(err).Int64("story_id", storyID).Msg("Failed to persist voted set")
	}
	c.setVotesLocked(storyID, votes)

	return nil
}

func (c *Controller) addVotesLocked(storyID int64, delta int) {
	for i := range c.stories {
		if c.stories[i].ID == storyID {
			c.stories[i].Votes += delta
		}
	}
}

func (c *Controller) setVotesLocked(storyID int64, votes int) {
	for i := range c.stories {
		if c.stories[i].ID == storyID {
			c.stories[i].Votes = votes
		}
	}
}

// setErrorLocked surfaces a transient error that clears itself unless a
// newer one replaced it in the meantime.
func (c *Controller) setErrorLocked(msg string) {
	c.lastErr = msg
	if c.errTimer != nil {
		c.errTimer.Stop()
	}
	c.errTimer = time.AfterFunc(c.errDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.lastErr == msg {
			c.lastErr = ""
		}
	})
}

// Stories returns a copy of the currently displayed list.
func (c *Controller) Stories() []storywall.Story {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]storywall.Story, len(c.stories))
	copy(out, c.stories)
	return out
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

func (c *Controller) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Err returns the transient error currently displayed, if any.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
