package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAnnouncement = errors.New("invalid announcement")
	ErrUnauthorizedSender  = errors.New("unauthorized sender")
	ErrTargetNotFound      = errors.New("target not found")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrConnectionClosed    = errors.New("connection closed")
	ErrSendQueueFull       = errors.New("send queue full")
	ErrMalformedEvent      = errors.New("malformed event")
)

const (
	CodeInvalidAnnouncement = "invalid_announcement"
	CodeUnauthorizedSender  = "unauthorized_sender"
	CodeTargetNotFound      = "target_not_found"
)

// NoticeError is a recoverable relay failure that is reported back to the
// originating connection as an errorNotice.
type NoticeError struct {
	Kind    error
	Code    string
	Message string
	Target  Identity
}

func (e *NoticeError) Error() string {
	return e.Message
}

func (e *NoticeError) Unwrap() error {
	return e.Kind
}

// Notice renders the error as the outbound payload.
func (e *NoticeError) Notice() ErrorNotice {
	return ErrorNotice{
		Code:   e.Code,
		Error:  e.Message,
		Target: e.Target,
	}
}

func NewInvalidAnnouncement() *NoticeError {
	return &NoticeError{
		Kind:    ErrInvalidAnnouncement,
		Code:    CodeInvalidAnnouncement,
		Message: "sign in requires a non-empty id",
	}
}

func NewUnauthorizedSender(claimed Identity) *NoticeError {
	return &NoticeError{
		Kind:    ErrUnauthorizedSender,
		Code:    CodeUnauthorizedSender,
		Message: fmt.Sprintf("connection is not signed in as %q", claimed),
	}
}

func NewTargetNotFound(target Identity) *NoticeError {
	return &NoticeError{
		Kind:    ErrTargetNotFound,
		Code:    CodeTargetNotFound,
		Message: fmt.Sprintf("User with ID %s not found.", target),
		Target:  target,
	}
}
