package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"chatrelay/internal/app/hub"
	"chatrelay/internal/app/registry"
	"chatrelay/internal/core/domain"
	"chatrelay/internal/core/services"
	"chatrelay/pkg/logging"

	"github.com/stretchr/testify/require"
)

// recordingConn captures every frame pushed to it.
type recordingConn struct {
	id domain.ConnectionID

	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: domain.NewConnectionID()}
}

func (c *recordingConn) ID() domain.ConnectionID { return c.id }

func (c *recordingConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *recordingConn) failWith(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *recordingConn) events(t *testing.T) []domain.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

// onlyEvent asserts exactly one frame arrived and returns it.
func (c *recordingConn) onlyEvent(t *testing.T) domain.Envelope {
	t.Helper()
	events := c.events(t)
	require.Len(t, events, 1, "expected exactly one event on %s", c.id)
	return events[0]
}

type relayFixture struct {
	registry *registry.Registry
	hub      *hub.Hub
	relay    *services.RelayService
	session  *services.SessionService
	manager  *services.ManagerService
}

func newRelayFixture() *relayFixture {
	log := logging.Discard()
	reg := registry.NewRegistry()
	h := hub.NewHub()
	relay := services.NewRelayService(log, reg, h)
	session := services.NewSessionService(log, reg, h, relay)
	return &relayFixture{
		registry: reg,
		hub:      h,
		relay:    relay,
		session:  session,
		manager:  services.NewManagerService(log, session, relay),
	}
}

func (f *relayFixture) connect() *recordingConn {
	c := newRecordingConn()
	f.session.Connect(context.Background(), c)
	return c
}

// signedIn connects a client, signs it in as id and drops the acknowledgment.
func (f *relayFixture) signedIn(t *testing.T, id domain.Identity) *recordingConn {
	t.Helper()
	c := f.connect()
	require.NoError(t, f.session.SignIn(context.Background(), c.ID(), domain.SignIn{Identity: id}))
	c.reset()
	return c
}

func decodeNotice(t *testing.T, env domain.Envelope) domain.ErrorNotice {
	t.Helper()
	require.Equal(t, domain.EventErrorNotice, env.Event)
	var n domain.ErrorNotice
	require.NoError(t, json.Unmarshal(env.Data, &n))
	return n
}
