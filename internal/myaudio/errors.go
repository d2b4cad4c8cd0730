package myaudio

import (
	"github.com/cardoc/cardoc-go/internal/errors"
)

// User-facing failure messages
const (
	MsgNotAudio    = "File must be an audio file"
	MsgUnreadable  = "Audio file could not be loaded or is corrupted"
	MsgEmptyAudio  = "Audio file is empty"
	MsgSilentAudio = "Audio file is silent"
)

// Sentinel errors returned (wrapped) by Decode
var (
	ErrUnreadable = errors.NewStd(MsgUnreadable)
	ErrEmpty      = errors.NewStd(MsgEmptyAudio)
	ErrSilent     = errors.NewStd(MsgSilentAudio)
)

// decodeError wraps cause as an audio-decode failure whose message is the
// user-facing sentinel text.
func decodeError(sentinel, cause error, format, operation string) *errors.EnhancedError {
	err := sentinel
	if cause != nil {
		err = &causeError{msg: sentinel, cause: cause}
	}
	return errors.New(err).
		Component("myaudio").
		Category(errors.CategoryAudioDecode).
		Context("format", format).
		Context("operation", operation).
		Build()
}

// causeError reports the sentinel message but unwraps to both the sentinel
// and the underlying cause.
type causeError struct {
	msg   error
	cause error
}

func (e *causeError) Error() string { return e.msg.Error() }

func (e *causeError) Unwrap() []error { return []error{e.msg, e.cause} }

// Cause returns the underlying decoder error.
func (e *causeError) Cause() error { return e.cause }
