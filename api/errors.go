package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures of a password reset so that callers can
// decide whether to poll again or give up.
type ErrorKind int

const (
	UnknownFailure ErrorKind = iota
	// KeyGenerationFailure means the RSA keypair could not be created.
	KeyGenerationFailure
	// EncodingFailure means the public key could not be turned into a WindowsKey.
	EncodingFailure
	// MetadataUpdateFailure means instance metadata could not be read or written.
	MetadataUpdateFailure
	// ReplyUnavailable means the agent has not answered yet. It is the only
	// retryable kind.
	ReplyUnavailable
	// ReplyMalformed means an answer was present but could not be used.
	ReplyMalformed
	// ReplyRejected means the agent answered with an error message.
	ReplyRejected
	// DecryptionFailure means the encrypted password could not be decrypted.
	DecryptionFailure
	// Timeout means the deadline passed or the context was cancelled while
	// waiting for the agent.
	Timeout
)

var kindNames = map[ErrorKind]string{
	UnknownFailure:        "unknown failure",
	KeyGenerationFailure:  "key generation failure",
	EncodingFailure:       "encoding failure",
	MetadataUpdateFailure: "metadata update failure",
	ReplyUnavailable:      "reply unavailable",
	ReplyMalformed:        "reply malformed",
	ReplyRejected:         "reply rejected",
	DecryptionFailure:     "decryption failure",
	Timeout:               "timeout",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Retryable reports whether polling again may produce a different outcome.
func (k ErrorKind) Retryable() bool {
	return k == ReplyUnavailable
}

// Sentinels for use with errors.Is.
var (
	ErrKeyGeneration    = &Error{Kind: KeyGenerationFailure}
	ErrEncoding         = &Error{Kind: EncodingFailure}
	ErrMetadataUpdate   = &Error{Kind: MetadataUpdateFailure}
	ErrReplyUnavailable = &Error{Kind: ReplyUnavailable}
	ErrReplyMalformed   = &Error{Kind: ReplyMalformed}
	ErrReplyRejected    = &Error{Kind: ReplyRejected}
	ErrDecryption       = &Error{Kind: DecryptionFailure}
	ErrTimeout          = &Error{Kind: Timeout}
)

// Error is a failure of a given kind together with its underlying cause.
type Error struct {
	Kind ErrorKind
	Err  error
}

// NewError returns an *Error of the given kind with a formatted cause. Use %w
// in format to keep the cause inspectable.
func NewError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapError returns an *Error of the given kind wrapping err, or nil if err is
// nil.
func WrapError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind that has no cause, which makes the
// package sentinels usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// UnknownFailure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownFailure
}
