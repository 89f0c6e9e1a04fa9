// Package engine mixes pack entries onto an output sink.
//
// Play and CreateUserPlayer only queue work; UpdateRequests moves queued
// players into the mix and reaps finished ones. Call it once per frame, or
// let Run do it on a ticker.
package engine

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"pakaudio/internal/codec"
	"pakaudio/internal/container"
	"pakaudio/internal/log"
	"pakaudio/internal/output"
	"pakaudio/internal/security"
	"pakaudio/pkg/spec"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// InitParam sizes the engine.
type InitParam struct {
	NumQueuedBuffers int
	MaxPlayers       int
	MaxUserPlayers   int
	WaitTime         time.Duration
}

func DefaultInitParam() InitParam {
	return InitParam{
		NumQueuedBuffers: spec.NumQueuedBuffers,
		MaxPlayers:       spec.MaxPlayers,
		MaxUserPlayers:   spec.MaxUserPlayers,
		WaitTime:         spec.WaitTimeMillis * time.Millisecond,
	}
}

// BufferDuration is the device buffer length implied by NumQueuedBuffers.
func (p InitParam) BufferDuration() time.Duration {
	return time.Duration(p.NumQueuedBuffers*spec.FrameSize) * time.Millisecond
}

func (p InitParam) withDefaults() InitParam {
	d := DefaultInitParam()
	if p.NumQueuedBuffers <= 0 {
		p.NumQueuedBuffers = d.NumQueuedBuffers
	}
	if p.MaxPlayers <= 0 {
		p.MaxPlayers = d.MaxPlayers
	}
	if p.MaxUserPlayers <= 0 {
		p.MaxUserPlayers = d.MaxUserPlayers
	}
	if p.WaitTime <= 0 {
		p.WaitTime = d.WaitTime
	}
	return p
}

// Stats is a snapshot of the engine's pools.
type Stats struct {
	Packs       int
	Queued      int
	Active      int
	Players     int
	UserPlayers int
	Paused      bool
	Gain        float64
}

type Context struct {
	param  InitParam
	sink   output.Sink
	codecs *codec.Registry

	mu          sync.Mutex
	packs       [spec.NumMaxPacks]*container.Pack
	requests    []*player
	active      []*player
	users       map[*UserPlayer]struct{}
	numPlayers  int
	terminated  bool
	paused      bool
	gain        float64
	passwordFor func(path string) string

	// Guarded by the sink lock.
	mixer  *beep.Mixer
	master *effects.Volume
	ctrl   *beep.Ctrl
}

// Initialize starts a mix on sink. A nil registry means codec.Default().
func Initialize(param InitParam, sink output.Sink, codecs *codec.Registry) *Context {
	if codecs == nil {
		codecs = codec.Default()
	}
	c := &Context{
		param:  param.withDefaults(),
		sink:   sink,
		codecs: codecs,
		users:  make(map[*UserPlayer]struct{}),
		gain:   1,
		mixer:  &beep.Mixer{},
	}
	c.master = newVolume(c.mixer, 1)
	c.ctrl = &beep.Ctrl{Streamer: c.master}
	sink.Play(c.ctrl)

	log.Info(log.CatEngine, "Engine initialized",
		"rate", int(sink.SampleRate()),
		"maxPlayers", c.param.MaxPlayers,
		"maxUserPlayers", c.param.MaxUserPlayers)
	return c
}

func (c *Context) Param() InitParam { return c.param }

// SetPasswordSource supplies passwords for sealed packs, keyed by pack path.
func (c *Context) SetPasswordSource(fn func(path string) string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passwordFor = fn
}

// LoadResourcePack opens the pack at path into slot id, replacing any pack
// already there. With stream set the file stays open and entries are read on
// demand; otherwise the whole pack is held in memory.
func (c *Context) LoadResourcePack(id int, path string, stream bool) (int, error) {
	return c.loadPack(id, path, stream, nil, func() (*container.Pack, error) {
		return container.OpenFile(path, stream)
	})
}

// LoadResourcePackFS is LoadResourcePack for packs inside an asset filesystem.
func (c *Context) LoadResourcePackFS(fsys fs.FS, id int, name string, stream bool) (int, error) {
	return c.loadPack(id, name, stream, fsys, func() (*container.Pack, error) {
		return container.OpenFS(fsys, name, stream)
	})
}

// loadPack opens a pack into slot id. Sealed packs are unlocked with the key
// locker next to them in fsys, when there is one, else with the password source.
func (c *Context) loadPack(id int, name string, stream bool, fsys fs.FS, open func() (*container.Pack, error)) (int, error) {
	if id < 0 || id >= spec.NumMaxPacks {
		return -1, fmt.Errorf("%w: %d", ErrInvalidPack, id)
	}

	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return -1, ErrNotInitialized
	}
	passwordFor := c.passwordFor
	c.mu.Unlock()

	p, err := open()
	if err != nil {
		log.ErrorErr(log.CatPack, "Failed to load pack", err, "id", id, "name", name)
		return -1, fmt.Errorf("loading pack %d from %s: %w", id, name, err)
	}
	if p.Sealed() {
		if pass, ok := lockerPassword(fsys, name); ok {
			p.Unseal(pass)
		} else if passwordFor != nil {
			p.Unseal(passwordFor(name))
		}
	}

	c.mu.Lock()
	old := c.packs[id]
	c.packs[id] = p
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	log.Debug(log.CatPack, "Pack loaded", "id", id, "name", name, "entries", p.NumFiles(), "stream", stream, "sealed", p.Sealed())
	return id, nil
}

// lockerPassword reads the key locker stored beside name inside fsys.
func lockerPassword(fsys fs.FS, name string) (string, bool) {
	if fsys == nil {
		return "", false
	}
	data, err := fs.ReadFile(fsys, security.LockerPath(name))
	if err != nil {
		return "", false
	}
	pass, err := security.OpenKeyLocker(data)
	if err != nil {
		log.ErrorErr(log.CatPack, "Bad key locker", err, "name", name)
		return "", false
	}
	return pass, true
}

// NumSounds is the entry count of pack id, or 0 when it is not loaded.
func (c *Context) NumSounds(packID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if packID < 0 || packID >= spec.NumMaxPacks || c.packs[packID] == nil {
		return 0
	}
	return c.packs[packID].NumFiles()
}

// lookup returns the pack holding sound (packID, id).
func (c *Context) lookup(packID, id int) (*container.Pack, error) {
	if packID < 0 || packID >= spec.NumMaxPacks {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPack, packID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return nil, ErrNotInitialized
	}
	p := c.packs[packID]
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrPackNotLoaded, packID)
	}
	if id < 0 || id >= p.NumFiles() {
		return nil, fmt.Errorf("%w: %d/%d", ErrSoundOutOfRange, packID, id)
	}
	if p.Entries[id].Size == 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrEmptyStream, packID, id)
	}
	return p, nil
}

// decodeEntry opens entry id of pack resampled to the sink rate. It takes no
// locks, so players may call it from the device goroutine when looping.
func (c *Context) decodeEntry(pack *container.Pack, packID, id int) (beep.Streamer, beep.StreamCloser, error) {
	sec, err := pack.Open(id)
	if err != nil {
		return nil, nil, err
	}
	src, format, name, err := c.codecs.Decode(codec.NopCloser(sec))
	if err != nil {
		return nil, nil, fmt.Errorf("sound %d/%d: %w", packID, id, err)
	}

	var s beep.Streamer = src
	if rate := c.sink.SampleRate(); format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, src)
	}
	log.Debug(log.CatCodec, "Entry opened", "pack", packID, "id", id, "format", name, "rate", int(format.SampleRate))
	return s, src, nil
}

// Play queues a one-shot of sound id from pack packID at linear gain.
func (c *Context) Play(packID, id int, gain float64) error {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.numPlayers >= c.param.MaxPlayers {
		c.mu.Unlock()
		return ErrNoPlayers
	}
	c.numPlayers++
	c.mu.Unlock()

	p, err := c.newPlayer(packID, id, gain, false)
	if err != nil {
		c.mu.Lock()
		c.numPlayers--
		c.mu.Unlock()
		return err
	}
	c.enqueue(p)
	return nil
}

func (c *Context) enqueue(p *player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, p)
}

// UpdateRequests moves queued players into the mix and releases the ones
// that have finished.
func (c *Context) UpdateRequests() {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return
	}
	requests := c.requests
	c.requests = nil

	var finished []*player
	c.sink.Lock()
	for _, p := range requests {
		c.mixer.Add(p.ctrl)
	}
	c.active = append(c.active, requests...)
	live := c.active[:0]
	for _, p := range c.active {
		if p.done {
			finished = append(finished, p)
			continue
		}
		live = append(live, p)
	}
	c.active = live
	c.sink.Unlock()

	for _, p := range finished {
		if !p.user {
			c.numPlayers--
		}
	}
	c.mu.Unlock()

	for _, p := range finished {
		p.closeSource()
	}
	if len(requests) > 0 || len(finished) > 0 {
		log.Debug(log.CatEngine, "Requests updated", "started", len(requests), "finished", len(finished))
	}
}

// Run calls UpdateRequests every WaitTime until ctx is done.
func (c *Context) Run(ctx context.Context) {
	ticker := time.NewTicker(c.param.WaitTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.UpdateRequests()
		}
	}
}

// SetPause pauses or resumes the whole mix.
func (c *Context) SetPause(pause bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return
	}
	c.paused = pause
	c.sink.Lock()
	c.ctrl.Paused = pause
	c.sink.Unlock()
	log.Debug(log.CatEngine, "Pause", "paused", pause)
}

// SetGain sets the linear master gain. Zero or less is silence.
func (c *Context) SetGain(gain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return
	}
	c.gain = gain
	c.sink.Lock()
	setVolume(c.master, gain)
	c.sink.Unlock()
}

func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Stats{
		Queued:      len(c.requests),
		Active:      len(c.active),
		Players:     c.numPlayers,
		UserPlayers: len(c.users),
		Paused:      c.paused,
		Gain:        c.gain,
	}
	for _, p := range c.packs {
		if p != nil {
			st.Packs++
		}
	}
	return st
}

// Terminate stops every player, closes the packs and the sink. Calling it
// again does nothing.
func (c *Context) Terminate() {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return
	}
	c.terminated = true

	c.sink.Lock()
	c.mixer.Clear()
	c.sink.Unlock()

	players := append(c.active, c.requests...)
	c.active, c.requests = nil, nil
	for u := range c.users {
		players = append(players, u.p)
	}
	c.users = map[*UserPlayer]struct{}{}
	c.numPlayers = 0
	packs := c.packs
	c.packs = [spec.NumMaxPacks]*container.Pack{}
	c.mu.Unlock()

	for _, p := range players {
		p.closeSource()
	}
	for _, p := range packs {
		if p != nil {
			_ = p.Close()
		}
	}
	if err := c.sink.Close(); err != nil {
		log.ErrorErr(log.CatEngine, "Failed to close sink", err)
	}
	log.Info(log.CatEngine, "Engine terminated")
}
