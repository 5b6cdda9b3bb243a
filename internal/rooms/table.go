// Package rooms keeps the room id -> members relation for the relay.
package rooms

import (
	"context"
	"sort"
	"sync"

	"github.com/mossy-p/meet-signaling/internal/models"
)

// room holds members in join order
type room struct {
	ID      string
	members []models.ConnectionID
	index   map[models.ConnectionID]struct{}
}

func (r *room) add(id models.ConnectionID) {
	if _, ok := r.index[id]; ok {
		return
	}
	r.index[id] = struct{}{}
	r.members = append(r.members, id)
}

func (r *room) remove(id models.ConnectionID) bool {
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, m := range r.members {
		if m == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return true
}

// Table is an in-memory membership table. Empty rooms are dropped.
type Table struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	joined map[models.ConnectionID]map[string]struct{}
}

// NewTable returns an empty room table.
func NewTable() *Table {
	return &Table{
		rooms:  make(map[string]*room),
		joined: make(map[models.ConnectionID]map[string]struct{}),
	}
}

// Join adds id to roomID, creating the room on first use. Joining twice is a no-op.
func (t *Table) Join(ctx context.Context, roomID string, id models.ConnectionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	r, exists := t.rooms[roomID]
	if !exists {
		r = &room{ID: roomID, index: make(map[models.ConnectionID]struct{})}
		t.rooms[roomID] = r
	}
	r.add(id)

	set, ok := t.joined[id]
	if !ok {
		set = make(map[string]struct{})
		t.joined[id] = set
	}
	set[roomID] = struct{}{}
	return nil
}

// Leave removes id from roomID. Leaving a room one is not in is a no-op.
func (t *Table) Leave(ctx context.Context, roomID string, id models.ConnectionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(roomID, id)
	return nil
}

func (t *Table) leaveLocked(roomID string, id models.ConnectionID) {
	if r, ok := t.rooms[roomID]; ok && r.remove(id) && len(r.members) == 0 {
		delete(t.rooms, roomID)
	}
	if set, ok := t.joined[id]; ok {
		delete(set, roomID)
		if len(set) == 0 {
			delete(t.joined, id)
		}
	}
}

// Members returns the members of roomID in join order. Unknown rooms are empty.
func (t *Table) Members(ctx context.Context, roomID string) ([]models.ConnectionID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rooms[roomID]
	if !ok {
		return nil, nil
	}
	out := make([]models.ConnectionID, len(r.members))
	copy(out, r.members)
	return out, nil
}

// LeaveAll removes id from every room and returns the rooms it was in, sorted.
func (t *Table) LeaveAll(id models.ConnectionID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.joined[id]
	left := make([]string, 0, len(set))
	for roomID := range set {
		left = append(left, roomID)
	}
	sort.Strings(left)
	for _, roomID := range left {
		t.leaveLocked(roomID, id)
	}
	return left
}

// Rooms lists non-empty rooms with their sizes, sorted by room id.
func (t *Table) Rooms() []models.RoomSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.RoomSummary, 0, len(t.rooms))
	for id, r := range t.rooms {
		out = append(out, models.RoomSummary{RoomID: id, MemberCount: len(r.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
