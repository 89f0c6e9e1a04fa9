package plugin

import (
	"io/fs"
	"sync"

	"pakaudio/internal/codec"
	"pakaudio/internal/engine"
	"pakaudio/internal/log"
	"pakaudio/internal/output"
	"pakaudio/internal/security"
)

// SinkFactory opens the output for a new engine.
type SinkFactory func(param engine.InitParam) (output.Sink, error)

type EngineOptions struct {
	Param  engine.InitParam
	Codecs *codec.Registry
	// NewSink is called on every Initialize.
	NewSink SinkFactory
	// Password unlocks sealed packs. nil means LockerPasswords("").
	Password func(path string) string
}

// Engine is the Backend that forwards to an engine.Context. Every call is a
// no-op (false, zero Handle) until Initialize succeeds and after Terminate.
type Engine struct {
	opts EngineOptions

	mu      sync.Mutex
	ctx     *engine.Context
	handles map[Handle]*engine.UserPlayer
	next    Handle
}

var _ Backend = (*Engine)(nil)

func NewEngine(opts EngineOptions) *Engine {
	if opts.Password == nil {
		opts.Password = LockerPasswords("")
	}
	return &Engine{opts: opts}
}

// LockerPasswords reads the key locker next to a pack, falling back to fallback.
func LockerPasswords(fallback string) func(path string) string {
	return func(path string) string {
		pass, err := security.UnlockKeyLocker(security.LockerPath(path))
		if err != nil {
			return fallback
		}
		return pass
	}
}

func (e *Engine) context() *engine.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// Context exposes the running engine, nil when not initialized.
func (e *Engine) Context() *engine.Context { return e.context() }

func (e *Engine) Initialize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx != nil {
		return
	}
	if e.opts.NewSink == nil {
		log.Error(log.CatPlugin, "No audio output configured")
		return
	}
	param := e.opts.Param
	sink, err := e.opts.NewSink(param)
	if err != nil {
		log.ErrorErr(log.CatPlugin, "Failed to open audio output", err)
		return
	}
	e.ctx = engine.Initialize(param, sink, e.opts.Codecs)
	e.ctx.SetPasswordSource(e.opts.Password)
	e.handles = make(map[Handle]*engine.UserPlayer)
}

func (e *Engine) Proc() {
	if c := e.context(); c != nil {
		c.UpdateRequests()
	}
}

func (e *Engine) Pause(pause bool) {
	if c := e.context(); c != nil {
		c.SetPause(pause)
	}
}

func (e *Engine) Terminate() {
	e.mu.Lock()
	c := e.ctx
	e.ctx = nil
	e.handles = nil
	e.mu.Unlock()
	if c != nil {
		c.Terminate()
	}
}

func (e *Engine) LoadResourcePack(packID int, filename string, stream bool) bool {
	c := e.context()
	if c == nil {
		return false
	}
	if _, err := c.LoadResourcePack(packID, filename, stream); err != nil {
		log.ErrorErr(log.CatPlugin, "LoadResourcePack failed", err, "pack", packID, "file", filename)
		return false
	}
	return true
}

func (e *Engine) LoadResourcePackFromAsset(assets fs.FS, packID int, filename string, stream bool) bool {
	c := e.context()
	if c == nil || assets == nil {
		return false
	}
	if _, err := c.LoadResourcePackFS(assets, packID, filename, stream); err != nil {
		log.ErrorErr(log.CatPlugin, "LoadResourcePackFromAsset failed", err, "pack", packID, "file", filename)
		return false
	}
	return true
}

func (e *Engine) Play(packID, id int, volume float32) {
	c := e.context()
	if c == nil {
		return
	}
	if err := c.Play(packID, id, float64(volume)); err != nil {
		log.ErrorErr(log.CatPlugin, "Play failed", err, "pack", packID, "id", id)
	}
}

// CreateUserPlayer holds the lock while the player is created, so a
// concurrent Terminate cannot orphan it.
func (e *Engine) CreateUserPlayer(packID, id int) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return 0
	}
	u, err := e.ctx.CreateUserPlayer(packID, id)
	if err != nil {
		log.ErrorErr(log.CatPlugin, "CreateUserPlayer failed", err, "pack", packID, "id", id)
		return 0
	}
	e.next++
	e.handles[e.next] = u
	return e.next
}

func (e *Engine) player(h Handle) (*engine.Context, *engine.UserPlayer) {
	if h == 0 {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return nil, nil
	}
	return e.ctx, e.handles[h]
}

func (e *Engine) DestroyUserPlayer(h Handle) {
	c, u := e.player(h)
	if u == nil {
		return
	}
	e.mu.Lock()
	delete(e.handles, h)
	e.mu.Unlock()
	c.DestroyUserPlayer(u)
}

func (e *Engine) UserPlayerPlay(h Handle) {
	if _, u := e.player(h); u != nil {
		if err := u.Play(); err != nil {
			log.ErrorErr(log.CatPlugin, "UserPlayerPlay failed", err, "handle", h)
		}
	}
}

func (e *Engine) UserPlayerPause(h Handle) {
	if _, u := e.player(h); u != nil {
		u.Pause()
	}
}
