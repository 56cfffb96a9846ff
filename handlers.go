package storywall

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

// listResponse is the wire shape of a listing page.
type listResponse struct {
	Stories    []*Story `json:"stories"`
	Count      int      `json:"count"`
	HasMore    bool     `json:"hasMore"`
	Offset     int      `json:"offset"`
	NextOffset int      `json:"nextOffset"`
}

// statsResponse is the wire shape of the aggregate counts.
type statsResponse struct {
	TotalStories    int `json:"totalStories"`
	StoriesThisWeek int `json:"storiesThisWeek"`
}

// voteResponse is the wire shape of a successful vote, carrying the
// authoritative count from the store rather than anything client-computed.
type voteResponse struct {
	Success bool   `json:"success"`
	Votes   int    `json:"votes"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// an encoding failure at this point can't be reported to the client
	// anymore, the status line is already out
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError lets errors that know their own response write it; anything
// else is logged and answered with a generic message so internal detail
// never leaks.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var responder ErrorResponder
	if errors.As(err, &responder) && responder.RespondError(w, r) {
		return
	}

	s.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeJSONError(w, http.StatusInternalServerError, fallback)
}

// HandleListStories handles requests for sorted, offset-paginated pages of
// approved stories. Unknown sort values fall back to "new"; bad limit and
// offset values fall back to their defaults.
func (s *Server) HandleListStories() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		query := req.URL.Query()

		sort := ParseSortOrder(query.Get("sort"))

		limit := s.config.StoriesPerPage
		if raw := query.Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				limit = v
			}
		}
		if limit < 1 {
			limit = 1
		}
		if limit > s.config.MaxStoriesPerPage {
			limit = s.config.MaxStoriesPerPage
		}

		offset := 0
		if raw := query.Get("offset"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				offset = v
			}
		}

		stories, err := s.store.ListStories(sort, limit, offset)
		if err != nil {
			s.respondError(res, req, err, "Failed to fetch stories")
			return
		}

		now := NowFunc()
		for _, story := range stories {
			story.TimeAgo = TimeAgo(story.CreatedAt, now)
		}

		writeJSON(res, http.StatusOK, &listResponse{
			Stories: stories,
			Count:   len(stories),
			// a page ending exactly at the last row is misreported as
			// having more; accepted heuristic
			HasMore:    len(stories) == limit,
			Offset:     offset,
			NextOffset: offset + len(stories),
		})
	}
}

// HandleSubmitAction handles story submissions. The validator here is the
// authority on content bounds; whatever the client checked is UX only.
func (s *Server) HandleSubmitAction() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		var sub StorySubmission
		if err := json.NewDecoder(req.Body).Decode(&sub); err != nil {
			writeJSONError(res, http.StatusBadRequest, "Invalid request body")
			return
		}

		story, err := ValidateSubmission(sub)
		if err != nil {
			s.respondError(res, req, err, "Something went wrong. Please try again.")
			return
		}

		if err := s.store.InsertStory(story); err != nil {
			s.respondError(res, req, err, "Failed to save story. Please try again.")
			return
		}

		s.metrics.RecordStorySubmitted()

		writeJSON(res, http.StatusCreated, map[string]interface{}{
			"message": "Story shared successfully!",
			"story":   story,
		})
	}
}

// voteRequest is the wire shape of a vote action.
type voteRequest struct {
	StoryID int64 `json:"storyId"`
}

// HandleVoteAction handles upvotes on a story. The increment happens in the
// store as one conditional update, and the response carries the count that
// update returned.
func (s *Server) HandleVoteAction() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		var vote voteRequest
		if err := json.NewDecoder(req.Body).Decode(&vote); err != nil || vote.StoryID == 0 {
			writeJSONError(res, http.StatusBadRequest, "Story ID is required")
			return
		}

		votes, err := s.store.IncrementStoryVotes(vote.StoryID)
		if err != nil {
			s.respondError(res, req, err, "Failed to update vote")
			return
		}

		s.metrics.RecordVote()

		writeJSON(res, http.StatusOK, &voteResponse{
			Success: true,
			Votes:   votes,
			Message: "Vote recorded successfully",
		})
	}
}

// HandleStats handles requests for the aggregate counts: all-time and
// trailing seven days, approved stories only.
func (s *Server) HandleStats() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		total, err := s.store.CountStories(nil)
		if err != nil {
			s.respondError(res, req, err, "Failed to fetch stats")
			return
		}

		weekAgo := NowFunc().Add(-7 * 24 * time.Hour)
		thisWeek, err := s.store.CountStories(&weekAgo)
		if err != nil {
			s.respondError(res, req, err, "Failed to fetch stats")
			return
		}

		writeJSON(res, http.StatusOK, &statsResponse{
			TotalStories:    total,
			StoriesThisWeek: thisWeek,
		})
	}
}

// HandleHealth reports whether the store still answers.
func (s *Server) HandleHealth() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if err := s.store.Ping(); err != nil {
			s.Logger.Error().Err(err).Msg("Store unreachable")
			writeJSONError(res, http.StatusServiceUnavailable, "store unreachable")
			return
		}

		writeJSON(res, http.StatusOK, map[string]string{"status": "ok"})
	}
}
