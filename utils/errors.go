package utils

import "errors"

// Shared failure values for the client session plumbing.
var (
	ErrRoomClosed    = errors.New("chatroom closed")
	ErrNotRegistered = errors.New("user is not registered")
)
