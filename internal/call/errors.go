package call

import "errors"

var (
	// ErrCallActive is returned by StartCall while a call intent or an
	// outgoing negotiation already exists.
	ErrCallActive = errors.New("call already active")

	// ErrAnswerTimeout is reported through OnCallFailed when an offer got
	// no answer within the configured timeout.
	ErrAnswerTimeout = errors.New("no answer to offer")

	// ErrStopped is returned by requests made after the coordinator loop
	// has exited.
	ErrStopped = errors.New("coordinator stopped")
)
