package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSessionNotFound   = errors.New("session not found")
	ErrPairNotFound      = errors.New("ground truth pair not found")
	ErrMalformedImport   = errors.New("malformed session import payload")
	ErrNotEnoughMessages = errors.New("not enough messages to compress")
)
