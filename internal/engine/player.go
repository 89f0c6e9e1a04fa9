package engine

import (
	"math"
	"sync"

	"pakaudio/internal/container"
	"pakaudio/internal/log"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// State is where a user player is in its lifecycle.
type State int

const (
	StateInitial State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// PlayerFlag is a bit set on user players.
type PlayerFlag uint32

const (
	// PlayerFlagLoop restarts the entry when it ends.
	PlayerFlagLoop PlayerFlag = 1 << iota
)

// player is one decoded entry in the mix. done, loop and ctrl are touched
// under the sink lock.
type player struct {
	c      *Context
	pack   *container.Pack
	packID int
	id     int
	user   bool

	stream beep.Streamer
	src    beep.StreamCloser
	vol    *effects.Volume
	ctrl   *beep.Ctrl

	loop bool
	done bool

	closeOnce sync.Once
}

func (c *Context) newPlayer(packID, id int, gain float64, user bool) (*player, error) {
	pack, err := c.lookup(packID, id)
	if err != nil {
		return nil, err
	}
	p := &player{c: c, pack: pack, packID: packID, id: id, user: user}
	if p.stream, p.src, err = c.decodeEntry(pack, packID, id); err != nil {
		return nil, err
	}
	p.vol = newVolume(p, gain)
	p.ctrl = &beep.Ctrl{Streamer: p.vol}
	return p, nil
}

func (p *player) Stream(samples [][2]float64) (int, bool) {
	if p.done {
		return 0, false
	}
	filled := 0
	rewound := false
	for filled < len(samples) {
		n, ok := p.stream.Stream(samples[filled:])
		filled += n
		if n > 0 {
			rewound = false
		}
		if ok {
			if n == 0 {
				break
			}
			continue
		}
		if !p.loop || rewound || !p.rewind() {
			p.done = true
			break
		}
		rewound = true
	}
	if filled == 0 && p.done {
		return 0, false
	}
	return filled, true
}

func (p *player) Err() error { return nil }

// rewind reopens the entry from the start.
func (p *player) rewind() bool {
	stream, src, err := p.c.decodeEntry(p.pack, p.packID, p.id)
	if err != nil {
		log.ErrorErr(log.CatEngine, "Failed to loop player", err, "pack", p.packID, "id", p.id)
		return false
	}
	if p.src != nil {
		_ = p.src.Close()
	}
	p.stream, p.src = stream, src
	return true
}

func (p *player) closeSource() {
	p.closeOnce.Do(func() {
		if p.src != nil {
			_ = p.src.Close()
		}
	})
}

func newVolume(s beep.Streamer, gain float64) *effects.Volume {
	v := &effects.Volume{Streamer: s, Base: 2}
	setVolume(v, gain)
	return v
}

// setVolume maps linear gain onto a base-2 volume.
func setVolume(v *effects.Volume, gain float64) {
	if gain <= 0 {
		v.Silent = true
		v.Volume = 0
		return
	}
	v.Silent = false
	v.Volume = math.Log2(gain)
}

// UserPlayer is a long-lived player the caller starts, pauses and destroys.
type UserPlayer struct {
	c      *Context
	packID int
	id     int

	mu    sync.Mutex
	p     *player
	state State
	flags PlayerFlag
	gain  float64
}

// CreateUserPlayer opens sound id of pack packID as a user player. It is
// queued paused and carries the Loop flag.
func (c *Context) CreateUserPlayer(packID, id int) (*UserPlayer, error) {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if len(c.users) >= c.param.MaxUserPlayers {
		c.mu.Unlock()
		return nil, ErrNoUserPlayers
	}
	c.mu.Unlock()

	p, err := c.newPlayer(packID, id, 1, true)
	if err != nil {
		return nil, err
	}
	p.loop = true
	p.ctrl.Paused = true

	u := &UserPlayer{c: c, packID: packID, id: id, p: p, flags: PlayerFlagLoop, gain: 1}

	c.mu.Lock()
	if len(c.users) >= c.param.MaxUserPlayers {
		c.mu.Unlock()
		p.closeSource()
		return nil, ErrNoUserPlayers
	}
	c.users[u] = struct{}{}
	c.requests = append(c.requests, p)
	c.mu.Unlock()

	log.Debug(log.CatEngine, "User player created", "pack", packID, "id", id)
	return u, nil
}

// DestroyUserPlayer stops u and frees its slot. nil and repeated calls are no-ops.
func (c *Context) DestroyUserPlayer(u *UserPlayer) {
	if u == nil {
		return
	}
	c.mu.Lock()
	if _, ok := c.users[u]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.users, u)
	c.mu.Unlock()

	u.Stop()
	log.Debug(log.CatEngine, "User player destroyed", "pack", u.packID, "id", u.id)
}

func (c *Context) owns(u *UserPlayer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.users[u]
	return ok
}

func (u *UserPlayer) finished() bool {
	u.c.sink.Lock()
	defer u.c.sink.Unlock()
	return u.p.done
}

// Play starts or resumes u. A stopped or finished player starts over.
func (u *UserPlayer) Play() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.c.owns(u) {
		return ErrPlayerDestroyed
	}

	if u.finished() {
		p, err := u.c.newPlayer(u.packID, u.id, u.gain, true)
		if err != nil {
			return err
		}
		p.loop = u.flags&PlayerFlagLoop != 0
		u.p = p
		u.c.enqueue(p)
	} else {
		u.c.sink.Lock()
		u.p.ctrl.Paused = false
		u.c.sink.Unlock()
	}
	u.state = StatePlaying
	return nil
}

func (u *UserPlayer) Pause() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == StateStopped {
		return
	}
	u.c.sink.Lock()
	u.p.ctrl.Paused = true
	u.c.sink.Unlock()
	u.state = StatePaused
}

// Stop drops u from the mix, paused or not. Its source is released by the
// next UpdateRequests.
func (u *UserPlayer) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.c.sink.Lock()
	u.p.done = true
	u.p.ctrl.Streamer = nil
	u.c.sink.Unlock()
	u.state = StateStopped
}

// State reports Stopped once a playing, non-looping entry has ended.
func (u *UserPlayer) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == StatePlaying && u.finished() {
		u.state = StateStopped
	}
	return u.state
}

func (u *UserPlayer) SetFlag(f PlayerFlag) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.flags |= f
	u.applyFlags()
}

func (u *UserPlayer) ResetFlag(f PlayerFlag) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.flags &^= f
	u.applyFlags()
}

func (u *UserPlayer) CheckFlag(f PlayerFlag) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.flags&f == f
}

func (u *UserPlayer) applyFlags() {
	u.c.sink.Lock()
	u.p.loop = u.flags&PlayerFlagLoop != 0
	u.c.sink.Unlock()
}

// SetGain sets u's linear gain.
func (u *UserPlayer) SetGain(gain float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gain = gain
	u.c.sink.Lock()
	setVolume(u.p.vol, gain)
	u.c.sink.Unlock()
}
