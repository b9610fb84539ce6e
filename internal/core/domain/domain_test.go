package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"chatrelay/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.Identity
	}{
		{"string", `{"id":"alice"}`, "alice"},
		{"number", `{"id":42}`, "42"},
		{"null", `{"id":null}`, ""},
		{"missing", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in domain.SignIn
			require.NoError(t, json.Unmarshal([]byte(tt.in), &in))
			assert.Equal(t, tt.want, in.Identity)
		})
	}

	var in domain.SignIn
	assert.Error(t, json.Unmarshal([]byte(`{"id":{"nested":true}}`), &in))
}

func TestSessionLifecycle(t *testing.T) {
	s := domain.NewSession("c1")
	assert.Equal(t, domain.StateAnonymous, s.State())
	_, ok := s.Identity()
	assert.False(t, ok)

	require.True(t, s.Bind("alice"))
	id, ok := s.Identity()
	assert.True(t, ok)
	assert.Equal(t, domain.Identity("alice"), id)

	prev, ok := s.Unbind()
	assert.True(t, ok)
	assert.Equal(t, domain.Identity("alice"), prev)
	assert.Equal(t, domain.StateAnonymous, s.State())
	_, ok = s.Unbind()
	assert.False(t, ok)

	require.True(t, s.Bind("bob"))
	assert.True(t, s.Close())
	assert.False(t, s.Close())
	assert.False(t, s.IsOpen())
	assert.False(t, s.Bind("carol"), "closed is terminal")
	assert.Equal(t, domain.StateClosed, s.State())
	assert.Equal(t, "closed", s.State().String())
}

func TestMarkGreeted(t *testing.T) {
	s := domain.NewSession("c1")
	assert.True(t, s.MarkGreeted())
	assert.False(t, s.MarkGreeted())

	closed := domain.NewSession("c2")
	closed.Close()
	assert.False(t, closed.MarkGreeted())
}

func TestNoticeErrors(t *testing.T) {
	err := error(domain.NewTargetNotFound("bob"))
	assert.True(t, errors.Is(err, domain.ErrTargetNotFound))
	assert.False(t, errors.Is(err, domain.ErrUnauthorizedSender))

	var nerr *domain.NoticeError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, domain.ErrorNotice{
		Code:   domain.CodeTargetNotFound,
		Error:  "User with ID bob not found.",
		Target: "bob",
	}, nerr.Notice())

	assert.ErrorIs(t, domain.NewUnauthorizedSender("eve"), domain.ErrUnauthorizedSender)
	assert.ErrorIs(t, domain.NewInvalidAnnouncement(), domain.ErrInvalidAnnouncement)
}

func TestEncode(t *testing.T) {
	frame, err := domain.Encode(domain.EventErrorNotice, domain.NewUnauthorizedSender("eve").Notice())
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"errorNotice","data":{"code":"unauthorized_sender","error":"connection is not signed in as \"eve\""}}`, string(frame))

	frame, err = domain.EncodeRaw(domain.EventBroadcastNotice, json.RawMessage(`{"name":"alice"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"broadcastNotice","data":{"name":"alice"}}`, string(frame))

	_, err = domain.Encode(domain.EventWelcome, make(chan int))
	assert.Error(t, err)
}

func TestSendMessageDirected(t *testing.T) {
	var in domain.SendMessage
	require.NoError(t, json.Unmarshal([]byte(`{"sourceId":1,"targetId":"bob","message":{"t":"hi"},"path":"p","isImage":true}`), &in))
	msg := in.Directed()
	assert.Equal(t, domain.Identity("1"), msg.Sender)
	assert.Equal(t, domain.Identity("bob"), msg.Target)
	assert.JSONEq(t, `{"t":"hi"}`, string(msg.Payload))
	assert.Equal(t, "p", msg.Path)
	assert.True(t, msg.IsImage)
}
