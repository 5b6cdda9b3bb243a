// Package relay implements the room protocol: joins, leaves, name checks,
// call-signal routing, chat and media toggles.
//
// All protocol handlers run on one worker goroutine (see Run). A handler runs
// to completion before the next event is taken, so registry reads and writes
// inside a handler never interleave with another handler.
package relay

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mossy-p/meet-signaling/internal/models"
	"github.com/mossy-p/meet-signaling/internal/registry"
)

var (
	// ErrInvalidPayload is returned for frames missing required fields.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownConnection is returned when a handler needs a registry entry that is gone.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrUnknownEvent is returned by Dispatch for event names outside the protocol.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrStopped is returned when the worker is no longer running.
	ErrStopped = errors.New("relay stopped")
)

// Sender delivers one outbound event to one connection. Delivery to an id
// that is not live must be dropped silently.
type Sender interface {
	Send(id models.ConnectionID, event string, payload any)
}

// Directory is the room grouping primitive the relay builds on.
type Directory interface {
	Join(ctx context.Context, roomID string, id models.ConnectionID) error
	Leave(ctx context.Context, roomID string, id models.ConnectionID) error
	Members(ctx context.Context, roomID string) ([]models.ConnectionID, error)
	LeaveAll(id models.ConnectionID) []string
	Rooms() []models.RoomSummary
}

// Mirror is notified of membership and presence changes after they are applied.
// Implementations must not block the worker.
type Mirror interface {
	Joined(roomID string, id models.ConnectionID, p models.Presence)
	Left(roomID string, id models.ConnectionID)
	Updated(id models.ConnectionID, p models.Presence)
	Gone(id models.ConnectionID, rooms []string)
}

type nopMirror struct{}

func (nopMirror) Joined(string, models.ConnectionID, models.Presence) {}
func (nopMirror) Left(string, models.ConnectionID)                    {}
func (nopMirror) Updated(models.ConnectionID, models.Presence)        {}
func (nopMirror) Gone(models.ConnectionID, []string)                  {}

// Relay routes protocol messages between connections.
type Relay struct {
	registry *registry.Registry
	rooms    Directory
	out      Sender
	mirror   Mirror
	log      zerolog.Logger

	events chan event
	done   chan struct{}
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Relay) { r.log = l.With().Str("module", "relay").Logger() }
}

// WithMirror attaches a mirror for membership and presence changes.
func WithMirror(m Mirror) Option {
	return func(r *Relay) {
		if m != nil {
			r.mirror = m
		}
	}
}

// WithQueueSize sets how many events may wait for the worker.
func WithQueueSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.events = make(chan event, n)
		}
	}
}

// New returns a relay over reg and rooms that delivers through out.
// Nothing is processed until Run is called.
func New(reg *registry.Registry, rooms Directory, out Sender, opts ...Option) *Relay {
	r := &Relay{
		registry: reg,
		rooms:    rooms,
		out:      out,
		mirror:   nopMirror{},
		log:      zerolog.Nop(),
		events:   make(chan event, 1024),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// broadcast sends to every id in members except skip (pass "" to skip nobody).
func (r *Relay) broadcast(members []models.ConnectionID, skip models.ConnectionID, event string, payload any) int {
	sent := 0
	for _, id := range members {
		if id == skip {
			continue
		}
		r.out.Send(id, event, payload)
		sent++
	}
	return sent
}

// presenceOf returns a copy of id's presence, or nil when it has no entry.
func (r *Relay) presenceOf(id models.ConnectionID) *models.Presence {
	p, ok := r.registry.Get(id)
	if !ok {
		return nil
	}
	return &p
}
