package coordinator

import "errors"

var (
	// ErrNoData is returned by a source that has not received a snapshot yet.
	ErrNoData = errors.New("coordinator: no schedule data available")

	// ErrFirstRefresh is wrapped when the initial refresh of an entry fails.
	ErrFirstRefresh = errors.New("coordinator: first refresh failed")

	// ErrAlreadyStarted is returned by Start on a running coordinator.
	ErrAlreadyStarted = errors.New("coordinator: already started")
)
