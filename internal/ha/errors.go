package ha

import "errors"

var (
	ErrNotConnected     = errors.New("ha: not connected")
	ErrAlreadyConnected = errors.New("ha: already connected")
	ErrAuthFailed       = errors.New("ha: authentication failed")
	ErrTimeout          = errors.New("ha: timeout waiting for response")
	ErrDisconnected     = errors.New("ha: client disconnected")
)
