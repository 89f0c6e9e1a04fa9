package engine

import "errors"

var (
	ErrNotInitialized  = errors.New("engine not initialized")
	ErrInvalidPack     = errors.New("invalid pack id")
	ErrPackNotLoaded   = errors.New("pack not loaded")
	ErrSoundOutOfRange = errors.New("sound id out of range")
	ErrNoPlayers       = errors.New("no free players")
	ErrNoUserPlayers   = errors.New("no free user players")
	ErrEmptyStream     = errors.New("entry has no samples")
	ErrPlayerDestroyed = errors.New("user player destroyed")
)
