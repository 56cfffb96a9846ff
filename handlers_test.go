package storywall

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/storywall/storywall/metrics"
)

var errBoom = errors.New("boom")

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	nextID  int64
	stories []*Story
	failing bool
}

func (f *fakeStore) Connect() error { return nil }

func (f *fakeStore) Ping() error {
	if f.failing {
		return errBoom
	}
	return nil
}

func (f *fakeStore) InsertStory(story *Story) error {
	if f.failing {
		return &StoreError{Op: "insert story", Err: errBoom}
	}

	f.nextID++
	story.ID = f.nextID
	story.CreatedAt = NowFunc()

	stored := *story
	f.stories = append(f.stories, &stored)

	return nil
}

func (f *fakeStore) FindStory(id int64) (*Story, error) {
	if f.failing {
		return nil, &StoreError{Op: "find story", Err: errBoom}
	}

	for _, story := range f.stories {
		if story.ID == id {
			found := *story
			return &found, nil
		}
	}

	return nil, NotFound("Story")
}

func (f *fakeStore) ListStories(sortBy SortOrder, limit int, offset int) ([]*Story, error) {
	if f.failing {
		return nil, &StoreError{Op: "list stories", Err: errBoom}
	}

	approved := []*Story{}
	for _, story := range f.stories {
		if story.IsApproved {
			approved = append(approved, story)
		}
	}

	sort.SliceStable(approved, func(i, j int) bool {
		a, b := approved[i], approved[j]
		if sortBy == SortTop || sortBy == SortTrending {
			if a.Votes != b.Votes {
				return a.Votes > b.Votes
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if offset > len(approved) {
		offset = len(approved)
	}
	end := offset + limit
	if end > len(approved) {
		end = len(approved)
	}

	page := []*Story{}
	for _, story := range approved[offset:end] {
		copied := *story
		page = append(page, &copied)
	}

	return page, nil
}

func (f *fakeStore) IncrementStoryVotes(id int64) (int, error) {
	if f.failing {
		return 0, &StoreError{Op: "increment votes", Err: errBoom}
	}

	for _, story := range f.stories {
		if story.ID == id {
			story.Votes++
			return story.Votes, nil
		}
	}

	return 0, NotFound("Story")
}

func (f *fakeStore) CountStories(since *time.Time) (int, error) {
	if f.failing {
		return 0, &StoreError{Op: "count stories", Err: errBoom}
	}

	count := 0
	for _, story := range f.stories {
		if !story.IsApproved {
			continue
		}
		if since != nil && story.CreatedAt.Before(*since) {
			continue
		}
		count++
	}

	return count, nil
}

func newTestServer(c *qt.C) (*Server, *fakeStore) {
	store := &fakeStore{}
	collector := metrics.NewCollector(prometheus.NewRegistry())
	server := NewServer(&ServerConfig{
		Addr:              "localhost:0",
		StoriesPerPage:    20,
		MaxStoriesPerPage: 100,
	}, zerolog.Nop(), store, collector)
	c.Assert(server.Prepare(), qt.IsNil)

	return server, store
}

func doRequest(server *Server, method string, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	return rec
}

func decodeList(c *qt.C, rec *httptest.ResponseRecorder) *listResponse {
	var page listResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &page), qt.IsNil)
	return &page
}

func decodeError(c *qt.C, rec *httptest.ResponseRecorder) string {
	var body map[string]string
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	return body["error"]
}

func submitStory(c *qt.C, server *Server, content string) *Story {
	rec := doRequest(server, http.MethodPost, "/submit", StorySubmission{Content: content})
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	var body struct {
		Message string `json:"message"`
		Story   Story  `json:"story"`
	}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)

	return &body.Story
}

func TestHandleListStories(t *testing.T) {
	c := qt.New(t)

	c.Run("empty board", func(c *qt.C) {
		server, _ := newTestServer(c)

		rec := doRequest(server, http.MethodGet, "/stories", nil)
		c.Assert(rec.Code, qt.Equals, http.StatusOK)

		page := decodeList(c, rec)
		c.Assert(page.Stories, qt.HasLen, 0)
		c.Assert(page.Count, qt.Equals, 0)
		c.Assert(page.HasMore, qt.IsFalse)
		c.Assert(page.Offset, qt.Equals, 0)
		c.Assert(page.NextOffset, qt.Equals, 0)
	})

	c.Run("new sort returns the latest submission first", func(c *qt.C) {
		server, _ := newTestServer(c)

		base, _ := time.Parse(time.RFC3339, "2020-06-15T12:00:00Z")
		tick := 0
		withFakeNow(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}, func() {
			submitStory(c, server, "the first story ever told")
			submitStory(c, server, "the second story ever told")
		})

		rec := doRequest(server, http.MethodGet, "/stories?sort=new&offset=0", nil)
		page := decodeList(c, rec)
		c.Assert(page.Count, qt.Equals, 2)
		c.Assert(page.Stories[0].Content, qt.Equals, "the second story ever told")
		c.Assert(page.Stories[1].Content, qt.Equals, "the first story ever told")
		c.Assert(page.Stories[0].TimeAgo, qt.Not(qt.Equals), "")
	})

	c.Run("top sort orders by votes descending", func(c *qt.C) {
		server, store := newTestServer(c)

		for i, votes := range []int{5, 3, 1} {
			story := submitStory(c, server, fmt.Sprintf("story number %d of the fixture", i))
			for v := 0; v < votes; v++ {
				_, err := store.IncrementStoryVotes(story.ID)
				c.Assert(err, qt.IsNil)
			}
		}

		rec := doRequest(server, http.MethodGet, "/stories?sort=top&limit=2&offset=0", nil)
		page := decodeList(c, rec)
		c.Assert(page.Count, qt.Equals, 2)
		c.Assert(page.Stories[0].Votes, qt.Equals, 5)
		c.Assert(page.Stories[1].Votes, qt.Equals, 3)
		c.Assert(page.HasMore, qt.IsTrue)
		c.Assert(page.NextOffset, qt.Equals, 2)
	})

	c.Run("trending aliases top", func(c *qt.C) {
		server, store := newTestServer(c)

		first := submitStory(c, server, "story with a single vote on it")
		submitStory(c, server, "story with no votes at all")
		_, err := store.IncrementStoryVotes(first.ID)
		c.Assert(err, qt.IsNil)

		rec := doRequest(server, http.MethodGet, "/stories?sort=trending", nil)
		page := decodeList(c, rec)
		c.Assert(page.Stories[0].ID, qt.Equals, first.ID)
	})

	c.Run("hasMore is the exact-limit heuristic", func(c *qt.C) {
		server, _ := newTestServer(c)

		for i := 0; i < 3; i++ {
			submitStory(c, server, fmt.Sprintf("story number %d of the fixture", i))
		}

		// a page ending exactly at the last row still reports more
		rec := doRequest(server, http.MethodGet, "/stories?limit=3", nil)
		c.Assert(decodeList(c, rec).HasMore, qt.IsTrue)

		rec = doRequest(server, http.MethodGet, "/stories?limit=4", nil)
		c.Assert(decodeList(c, rec).HasMore, qt.IsFalse)
	})

	c.Run("pages concatenate without duplicates or gaps", func(c *qt.C) {
		server, _ := newTestServer(c)

		for i := 0; i < 5; i++ {
			submitStory(c, server, fmt.Sprintf("story number %d of the fixture", i))
		}

		seen := map[int64]bool{}
		offset := 0
		for {
			rec := doRequest(server, http.MethodGet, fmt.Sprintf("/stories?limit=2&offset=%d", offset), nil)
			page := decodeList(c, rec)
			for _, story := range page.Stories {
				c.Assert(seen[story.ID], qt.IsFalse)
				seen[story.ID] = true
			}
			if !page.HasMore {
				break
			}
			offset = page.NextOffset
		}

		c.Assert(seen, qt.HasLen, 5)
	})

	c.Run("bad params fall back to defaults", func(c *qt.C) {
		server, _ := newTestServer(c)
		submitStory(c, server, "a story for the bad params case")

		rec := doRequest(server, http.MethodGet, "/stories?sort=bogus&limit=abc&offset=-4", nil)
		c.Assert(rec.Code, qt.Equals, http.StatusOK)
		page := decodeList(c, rec)
		c.Assert(page.Count, qt.Equals, 1)
		c.Assert(page.Offset, qt.Equals, 0)
	})

	c.Run("limit is clamped to the configured maximum", func(c *qt.C) {
		store := &fakeStore{}
		collector := metrics.NewCollector(prometheus.NewRegistry())
		server := NewServer(&ServerConfig{
			Addr:              "localhost:0",
			StoriesPerPage:    1,
			MaxStoriesPerPage: 2,
		}, zerolog.Nop(), store, collector)
		c.Assert(server.Prepare(), qt.IsNil)

		for i := 0; i < 3; i++ {
			submitStory(c, server, fmt.Sprintf("story number %d of the fixture", i))
		}

		rec := doRequest(server, http.MethodGet, "/stories?limit=50", nil)
		c.Assert(decodeList(c, rec).Count, qt.Equals, 2)

		rec = doRequest(server, http.MethodGet, "/stories", nil)
		c.Assert(decodeList(c, rec).Count, qt.Equals, 1)
	})

	c.Run("store failure is a generic 500", func(c *qt.C) {
		server, store := newTestServer(c)
		store.failing = true

		rec := doRequest(server, http.MethodGet, "/stories", nil)
		c.Assert(rec.Code, qt.Equals, http.StatusInternalServerError)
		c.Assert(decodeError(c, rec), qt.Equals, "Failed to fetch stories")
	})
}

func TestHandleSubmitAction(t *testing.T) {
	c := qt.New(t)

	c.Run("content-only submission", func(c *qt.C) {
		server, _ := newTestServer(c)

		rec := doRequest(server, http.MethodPost, "/submit", StorySubmission{
			Content: "Waited 6 hours for a permit that needed 7 stamps",
		})
		c.Assert(rec.Code, qt.Equals, http.StatusCreated)

		var body struct {
			Message string `json:"message"`
			Story   Story  `json:"story"`
		}
		c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
		c.Assert(body.Message, qt.Equals, "Story shared successfully!")
		c.Assert(body.Story.Title, qt.IsNil)
		c.Assert(body.Story.Votes, qt.Equals, 0)
		c.Assert(body.Story.IsApproved, qt.IsTrue)
		c.Assert(body.Story.CreatedBy, qt.Equals, "anonymous")
	})

	c.Run("too short content", func(c *qt.C) {
		server, _ := newTestServer(c)

		rec := doRequest(server, http.MethodPost, "/submit", StorySubmission{Content: "short"})
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, rec), qt.Equals, "Story must be at least 10 characters long")
	})

	c.Run("malformed body", func(c *qt.C) {
		server, _ := newTestServer(c)

		req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, rec), qt.Equals, "Invalid request body")
	})

	c.Run("store failure is a generic 500", func(c *qt.C) {
		server, store := newTestServer(c)
		store.failing = true

		rec := doRequest(server, http.MethodPost, "/submit", StorySubmission{
			Content: "Waited 6 hours for a permit that needed 7 stamps",
		})
		c.Assert(rec.Code, qt.Equals, http.StatusInternalServerError)
		c.Assert(decodeError(c, rec), qt.Equals, "Failed to save story. Please try again.")
	})
}

func TestHandleVoteAction(t *testing.T) {
	c := qt.New(t)

	c.Run("sequential votes return 1 then 2", func(c *qt.C) {
		server, _ := newTestServer(c)
		story := submitStory(c, server, "a fresh story with zero votes")

		for _, expected := range []int{1, 2} {
			rec := doRequest(server, http.MethodPost, "/vote", map[string]int64{"storyId": story.ID})
			c.Assert(rec.Code, qt.Equals, http.StatusOK)

			var body voteResponse
			c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
			c.Assert(body.Success, qt.IsTrue)
			c.Assert(body.Votes, qt.Equals, expected)
			c.Assert(body.Message, qt.Equals, "Vote recorded successfully")
		}
	})

	c.Run("nonexistent story", func(c *qt.C) {
		server, _ := newTestServer(c)

		rec := doRequest(server, http.MethodPost, "/vote", map[string]int64{"storyId": 999999})
		c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
		c.Assert(decodeError(c, rec), qt.Equals, "Story not found")
	})

	c.Run("missing story id", func(c *qt.C) {
		server, _ := newTestServer(c)

		rec := doRequest(server, http.MethodPost, "/vote", map[string]string{})
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
		c.Assert(decodeError(c, rec), qt.Equals, "Story ID is required")
	})

	c.Run("store failure is a generic 500", func(c *qt.C) {
		server, store := newTestServer(c)
		story := submitStory(c, server, "a story that will fail to vote")
		store.failing = true

		rec := doRequest(server, http.MethodPost, "/vote", map[string]int64{"storyId": story.ID})
		c.Assert(rec.Code, qt.Equals, http.StatusInternalServerError)
		c.Assert(decodeError(c, rec), qt.Equals, "Failed to update vote")
	})
}

func TestHandleStats(t *testing.T) {
	c := qt.New(t)

	c.Run("counts all-time and trailing week", func(c *qt.C) {
		server, _ := newTestServer(c)

		now, _ := time.Parse(time.RFC3339, "2020-06-15T12:00:00Z")

		// one old story, one recent
		withFakeNow(func() time.Time { return now.Add(-10 * 24 * time.Hour) }, func() {
			submitStory(c, server, "a story from ten days ago")
		})
		withFakeNow(func() time.Time { return now.Add(-time.Hour) }, func() {
			submitStory(c, server, "a story from an hour ago")
		})

		withFakeNow(func() time.Time { return now }, func() {
			rec := doRequest(server, http.MethodGet, "/stats", nil)
			c.Assert(rec.Code, qt.Equals, http.StatusOK)

			var stats statsResponse
			c.Assert(json.Unmarshal(rec.Body.Bytes(), &stats), qt.IsNil)
			c.Assert(stats.TotalStories, qt.Equals, 2)
			c.Assert(stats.StoriesThisWeek, qt.Equals, 1)
		})
	})

	c.Run("idempotent without intervening submissions", func(c *qt.C) {
		server, _ := newTestServer(c)
		submitStory(c, server, "the only story on this board")

		first := doRequest(server, http.MethodGet, "/stats", nil)
		second := doRequest(server, http.MethodGet, "/stats", nil)
		c.Assert(first.Body.String(), qt.Equals, second.Body.String())
	})

	c.Run("store failure is a generic 500", func(c *qt.C) {
		server, store := newTestServer(c)
		store.failing = true

		rec := doRequest(server, http.MethodGet, "/stats", nil)
		c.Assert(rec.Code, qt.Equals, http.StatusInternalServerError)
		c.Assert(decodeError(c, rec), qt.Equals, "Failed to fetch stats")
	})
}

func TestHandleHealth(t *testing.T) {
	c := qt.New(t)

	server, store := newTestServer(c)

	rec := doRequest(server, http.MethodGet, "/healthz", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	store.failing = true
	rec = doRequest(server, http.MethodGet, "/healthz", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusServiceUnavailable)
}
