package spec

var (
	// r1..r3 are fixed 64-char fragments; sealed packs derive their locker key from them.
	r1 = "kP2vN8qLx5mW1cE7zY0uI4oJ3hG6fD9sA8aQ7wP6eO5rI4tU3yT2xR1bV0nM9lK8"
	r2 = "Z1xC2vB3nM4aS5dF6gH7jK8lQ9wE0rT1yU2iO3pA4sD5fG6hJ7kL8zX9cV0bN1m"
	r3 = "W9eR8tY7uI6oP5aS4dF3gH2jK1lZ0xC9vB8nM7qW6eR5tY4uI3oP2aS1dF0gH9j"

	// MasterKey joins r1+r2+r3.
	MasterKey = r1 + r2 + r3
)

const (
	// === IDENTITY & VERSIONING ===
	Version = "1.0.0"

	// === OUTPUT FORMAT ===
	SampleRate = 48000
	FrameSize  = 20 // ms per framed-opus packet

	// === ENGINE LIMITS ===
	NumMaxPacks                = 8
	NumQueuedBuffers           = 3
	MaxPlayers                 = 128
	MaxUserPlayers             = 8
	WaitTimeMillis             = 30
	BufferNumSamplesPerChannel = 5760 // 120 ms at 48 kHz, the longest opus frame

	// === PACK FORMAT ===
	PackHeaderSize = 12 // reserved0 | reserved1 | numFiles
	PackEntrySize  = 8  // size | offset
	PackExt        = ".pak"
	PackListExt    = ".txt"

	// PackFlagSealed is bit 0 of reserved0.
	PackFlagSealed uint32 = 0x01

	// === SECURITY ===
	Salt        = "PAKSALT1"
	LockerMagic = "PAKLOCK1"
	NonceSize   = 12 // AES-GCM nonce prepended to sealed data

	// === ENTRY MAGIC ===
	MagicOgg        = "OggS"
	MagicOpusHead   = "OpusHead"
	MagicVorbisHead = "\x01vorbis"
	MagicRIFF       = "RIFF"
	MagicWAVE       = "WAVE"
	MagicID3        = "ID3"
	MagicOpusFrames = "PKOF"
)
