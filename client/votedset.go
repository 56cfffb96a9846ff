package client

import (
	"encoding/json"
	"sort"
	"sync"
)

// votedStoriesKey is the durable key the voted-story set is stored under.
const votedStoriesKey = "voted_stories"

// KV is the minimal get/set capability for client-local durable storage.
// The controller receives one instead of touching any ambient global state.
type KV interface {
	// Get returns the stored value for key, reporting whether it existed.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// VotedSet tracks which stories this client already voted on. It is a UX
// throttle only: a wiped store or another device can vote again, there is no
// server-side enforcement.
type VotedSet struct {
	kv KV

	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewVotedSet loads the persisted set through the given capability. A
// missing or unreadable entry starts the set empty rather than failing the
// client.
func NewVotedSet(kv KV) *VotedSet {
	v := &VotedSet{
		kv:  kv,
		ids: map[int64]struct{}{},
	}

	raw, ok, err := kv.Get(votedStoriesKey)
	if err != nil || !ok {
		return v
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return v
	}
	for _, id := range ids {
		v.ids[id] = struct{}{}
	}

	return v
}

// Has reports whether this client already voted on the story.
func (v *VotedSet) Has(storyID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.ids[storyID]
	return ok
}

// Add records a vote and persists the set.
func (v *VotedSet) Add(storyID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.ids[storyID]; ok {
		return nil
	}
	v.ids[storyID] = struct{}{}

	ids := make([]int64, 0, len(v.ids))
	for id := range v.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	return v.kv.Set(votedStoriesKey, raw)
}
