package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrPlayerNotFound  = errors.New("player not found")

	// Payload errors
	ErrPayloadNoPlayer = errors.New("payload carries no player id")
)
