package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campushq/chat-server/models"
	"github.com/campushq/chat-server/store"
)

// fakeConn records everything sent to it, standing in for a websocket
// session in component tests.
type fakeConn struct {
	id     string
	userID string
	name   string

	mu     sync.Mutex
	events []models.Event
}

func newFakeConn(id, userID, name string) *fakeConn {
	return &fakeConn{id: id, userID: userID, name: name}
}

func (f *fakeConn) ID() string     { return f.id }
func (f *fakeConn) UserID() string { return f.userID }
func (f *fakeConn) Name() string   { return f.name }

func (f *fakeConn) Send(evt models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakeConn) eventsNamed(name string) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, evt := range f.events {
		if evt.Event == name {
			out = append(out, evt)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

func decode[T any](t *testing.T, evt models.Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(evt.Data, &v))
	return v
}

func newTestCore(t *testing.T) (*Core, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return NewCore(st, nil), st
}
