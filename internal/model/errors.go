package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomNotEmpty       = errors.New("room still has players")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique room code")

	// Session errors
	ErrNotInRoom = errors.New("session is not in a room")

	// Results errors
	ErrInvalidResult = errors.New("invalid race result")
)
