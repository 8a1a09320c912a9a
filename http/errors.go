package http

import "errors"

// ErrUnauthorized is returned when a request carries no usable bearer token.
var ErrUnauthorized = errors.New("unauthorized")
