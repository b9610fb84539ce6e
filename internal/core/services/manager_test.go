package services_test

import (
	"context"
	"testing"

	"chatrelay/internal/core/domain"
	"chatrelay/internal/core/services"
	"chatrelay/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageRejectsMalformedFrames(t *testing.T) {
	f := newRelayFixture()
	c := f.connect()

	for name, raw := range map[string]string{
		"not json":         `{"event":`,
		"missing event":    `{"data":{"id":"alice"}}`,
		"event not string": `{"event":42}`,
		"unknown event":    `{"event":"selfDestruct","data":{}}`,
		"data not object":  `{"event":"signIn","data":"alice"}`,
		"bad field type":   `{"event":"sendMessage","data":{"sourceId":"a","targetId":"b","isImage":"yes"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := f.manager.HandleMessage(context.Background(), c.ID(), []byte(raw))
			assert.ErrorIs(t, err, domain.ErrMalformedEvent)
		})
	}
	assert.Empty(t, c.events(t), "malformed frames get no reply")
	assert.Empty(t, f.registry.Snapshot())
}

func TestHandleMessageSignInAcceptsNumericIdentity(t *testing.T) {
	f := newRelayFixture()
	c := f.connect()

	require.NoError(t, f.manager.HandleMessage(context.Background(), c.ID(), []byte(`{"event":"signIn","data":{"id":42}}`)))

	got, ok := f.registry.Lookup("42")
	require.True(t, ok)
	assert.Equal(t, c.ID(), got)
	assert.Equal(t, domain.EventSignedIn, c.onlyEvent(t).Event)
}

func TestHandleMessageRoutesDirectedMessage(t *testing.T) {
	f := newRelayFixture()
	alice := f.signedIn(t, "alice")
	bob := f.signedIn(t, "bob")

	raw := `{"event":"sendMessage","data":{"sourceId":"alice","targetId":"bob","message":"hello","path":"a/b.jpg","isImage":true}}`
	require.NoError(t, f.manager.HandleMessage(context.Background(), alice.ID(), []byte(raw)))

	env := bob.onlyEvent(t)
	assert.Equal(t, domain.EventMessageReceived, env.Event)
	assert.JSONEq(t, `{"sourceId":"alice","message":"hello","path":"a/b.jpg","isImage":true}`, string(env.Data))
	assert.Empty(t, alice.events(t))
}

func TestHandleMessageSignOut(t *testing.T) {
	f := newRelayFixture()
	c := f.signedIn(t, "alice")

	require.NoError(t, f.manager.HandleMessage(context.Background(), c.ID(), []byte(`{"event":"signOut"}`)))
	_, ok := f.registry.Lookup("alice")
	assert.False(t, ok)
}

func TestHandleMessageGreeting(t *testing.T) {
	f := newRelayFixture()
	alice := f.connect()
	bob := f.connect()

	require.NoError(t, f.manager.HandleMessage(context.Background(), alice.ID(), []byte(`{"event":"chat message","data":{"name":"alice"}}`)))

	assert.Len(t, alice.events(t), 2)
	env := bob.onlyEvent(t)
	assert.Equal(t, domain.EventBroadcastNotice, env.Event)
	assert.JSONEq(t, `{"name":"alice"}`, string(env.Data))
}

func TestHandleMessageHandlerErrorIsReturned(t *testing.T) {
	f := newRelayFixture()
	alice := f.signedIn(t, "alice")

	err := f.manager.HandleMessage(context.Background(), alice.ID(), []byte(`{"event":"sendMessage","data":{"sourceId":"alice","targetId":"nobody","message":"x"}}`))
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	assert.Equal(t, domain.CodeTargetNotFound, decodeNotice(t, alice.onlyEvent(t)).Code)
}

func TestHandleMessageRejectsInvalidUTF8(t *testing.T) {
	f := newRelayFixture()
	alice := f.signedIn(t, "alice")
	bob := f.signedIn(t, "bob")

	frames := map[string][]byte{
		"directed message": []byte("{\"event\":\"sendMessage\",\"data\":{\"sourceId\":\"alice\",\"targetId\":\"bob\",\"message\":\"\xff\xfe\"}}"),
		"greeting":         []byte("{\"event\":\"chat message\",\"data\":{\"name\":\"\xc3\x28\"}}"),
	}
	for name, raw := range frames {
		t.Run(name, func(t *testing.T) {
			err := f.manager.HandleMessage(context.Background(), alice.ID(), raw)
			assert.ErrorIs(t, err, domain.ErrMalformedEvent)
		})
	}
	assert.Empty(t, alice.events(t))
	assert.Empty(t, bob.events(t))
}

func TestHandleMessageSendRequiresBothIdentities(t *testing.T) {
	f := newRelayFixture()
	alice := f.signedIn(t, "alice")
	bob := f.signedIn(t, "bob")

	for name, raw := range map[string]string{
		"missing target": `{"event":"sendMessage","data":{"sourceId":"alice","message":"hi"}}`,
		"empty target":   `{"event":"sendMessage","data":{"sourceId":"alice","targetId":"","message":"hi"}}`,
		"missing sender": `{"event":"sendMessage","data":{"targetId":"bob","message":"hi"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := f.manager.HandleMessage(context.Background(), alice.ID(), []byte(raw))
			assert.ErrorIs(t, err, domain.ErrMalformedEvent)
		})
	}
	assert.Empty(t, alice.events(t), "wrong shape frames get no reply")
	assert.Empty(t, bob.events(t))
}

// stubSession records what the dispatcher hands to the lifecycle manager.
type stubSession struct {
	services.ISessionService
	signIns  []domain.SignIn
	signOuts int
}

func (s *stubSession) SignIn(_ context.Context, _ domain.ConnectionID, in domain.SignIn) error {
	s.signIns = append(s.signIns, in)
	return nil
}

func (s *stubSession) SignOut(context.Context, domain.ConnectionID) error {
	s.signOuts++
	return nil
}

func TestHandleMessageRoutesThroughSessionInterface(t *testing.T) {
	f := newRelayFixture()
	session := &stubSession{}
	manager := services.NewManagerService(logging.Discard(), session, f.relay)
	connID := domain.NewConnectionID()

	require.NoError(t, manager.HandleMessage(context.Background(), connID, []byte(`{"event":"signIn","data":{"id":"alice","targetId":"bob"}}`)))
	require.NoError(t, manager.HandleMessage(context.Background(), connID, []byte(`{"event":"signOut"}`)))

	assert.Equal(t, []domain.SignIn{{Identity: "alice", TargetIdentity: "bob"}}, session.signIns)
	assert.Equal(t, 1, session.signOuts)
}
