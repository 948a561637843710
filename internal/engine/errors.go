package engine

import "errors"

var (
	// ErrInvalidRequest covers bad capital, unknown strategy or coin, bad dates and malformed params.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInsufficientData is returned when fewer than two price points are available.
	ErrInsufficientData = errors.New("insufficient price data")
	ErrNoResultStore    = errors.New("no result store configured")
)
