// Package plugin is the audio binding the demo talks to.
//
// Every operation is a pass-through to a Backend. Engine forwards to the pack
// engine; Inert accepts every call and does nothing, which is what builds
// without an audio device get.
package plugin

import (
	"io/fs"
)

// Handle identifies a user player. The zero Handle is null.
type Handle uintptr

// Backend is the set of entry points exposed to the demo.
type Backend interface {
	Initialize()
	Proc()
	Pause(pause bool)
	Terminate()
	LoadResourcePack(packID int, filename string, stream bool) bool
	LoadResourcePackFromAsset(assets fs.FS, packID int, filename string, stream bool) bool
	Play(packID, id int, volume float32)
	CreateUserPlayer(packID, id int) Handle
	DestroyUserPlayer(h Handle)
	UserPlayerPlay(h Handle)
	UserPlayerPause(h Handle)
}

// Inert is the stand-in backend: loads fail, handles are null, the rest is a no-op.
type Inert struct{}

var _ Backend = Inert{}

func (Inert) Initialize()            {}
func (Inert) Proc()                  {}
func (Inert) Pause(bool)             {}
func (Inert) Terminate()             {}
func (Inert) Play(int, int, float32) {}

func (Inert) LoadResourcePack(int, string, bool) bool { return false }

func (Inert) LoadResourcePackFromAsset(fs.FS, int, string, bool) bool { return false }

func (Inert) CreateUserPlayer(int, int) Handle { return 0 }
func (Inert) DestroyUserPlayer(Handle)         {}
func (Inert) UserPlayerPlay(Handle)            {}
func (Inert) UserPlayerPause(Handle)           {}
