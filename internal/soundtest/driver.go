// Package soundtest is the demo scene: a user player streaming one background
// track, an engine-side source with the other, and two lanes that fire a sound
// effect and pulse a marker every other second.
package soundtest

import (
	"pakaudio/internal/log"
	"pakaudio/internal/plugin"
)

const (
	// CyclePeriod is the length of one lane cycle.
	CyclePeriod = 2.0
	// TriggerTime is where in the cycle the lane fires.
	TriggerTime = 1.0
	// AttackTime is how long a marker grows after it fires.
	AttackTime = 0.5
	// MaxScale is a marker's scale at the end of the attack.
	MaxScale = 4.0

	flagSound = 1 << 0

	BGMPackID = 0
	SEPackID  = 1
)

const (
	LabelOpus   = "BGM OPUS NOW"
	LabelEngine = "BGM ENGINE NOW"

	InfoOpus   = "Opus\nStreaming\nStereo\nUser player on pack 0"
	InfoEngine = "Engine clip\nIn memory\nStereo\nLooping source"
)

// AudioSource is the engine-side background track.
type AudioSource interface {
	Play()
	Pause()
	SetLoop(loop bool)
}

// OneShotSource plays overlapping copies of its clip.
type OneShotSource interface {
	PlayOneShot(volume float64)
}

type Options struct {
	BGMPack string
	SEPack  string
}

func DefaultOptions() Options {
	return Options{BGMPack: "bgm.pak", SEPack: "se.pak"}
}

// Driver owns the scene state. It is not safe for concurrent use; the front
// end calls it from a single loop.
type Driver struct {
	backend plugin.Backend
	assets  plugin.AssetResolver
	bgm     AudioSource
	se      OneShotSource
	opts    Options

	time     float64
	flag     int
	lane     int
	playOpus bool
	handle   plugin.Handle
	markers  [2]Marker

	buttonLabel string
	infoText    string
	triggers    int
}

func New(backend plugin.Backend, assets plugin.AssetResolver, bgm AudioSource, se OneShotSource, opts Options) *Driver {
	return &Driver{
		backend:     backend,
		assets:      assets,
		bgm:         bgm,
		se:          se,
		opts:        opts,
		playOpus:    true,
		buttonLabel: LabelOpus,
	}
}

// Start brings the backend up, loads both packs and starts the user player.
func (d *Driver) Start() {
	if d.bgm != nil {
		d.bgm.SetLoop(true)
	}

	d.backend.Initialize()
	okBGM := plugin.LoadResourcePackFromAssets(d.backend, d.assets, BGMPackID, d.opts.BGMPack, true)
	okSE := plugin.LoadResourcePackFromAssets(d.backend, d.assets, SEPackID, d.opts.SEPack, false)
	log.Debug(log.CatDriver, "Packs loaded", "bgm", okBGM, "se", okSE)

	d.handle = d.backend.CreateUserPlayer(BGMPackID, 0)
	d.backend.UserPlayerPlay(d.handle)
	d.infoText = InfoOpus
}

// Update advances the scene by dt seconds.
func (d *Driver) Update(dt float64) {
	for i := range d.markers {
		d.markers[i].Update(dt)
	}

	d.time += dt
	if d.time >= CyclePeriod {
		d.time -= CyclePeriod
		d.flag = 0
		d.lane = (d.lane + 1) & 1
	} else if d.time >= TriggerTime && d.flag&flagSound == 0 {
		d.flag |= flagSound
		d.markers[d.lane].Trigger()
		d.play(d.lane)
		d.triggers++
	}
}

func (d *Driver) play(lane int) {
	switch lane {
	case 0:
		d.backend.Play(SEPackID, 0, 1.0)
	case 1:
		if d.se != nil {
			d.se.PlayOneShot(1.0)
		}
	}
	log.Debug(log.CatDriver, "Lane fired", "lane", lane)
}

// LateUpdate runs the backend's per-frame processing.
func (d *Driver) LateUpdate() {
	d.backend.Proc()
}

// OnApplicationPause pauses the backend mix and, while it is the audible
// track, the engine-side BGM.
func (d *Driver) OnApplicationPause(pause bool) {
	d.backend.Pause(pause)
	if d.bgm == nil || d.playOpus {
		return
	}
	if pause {
		d.bgm.Pause()
	} else {
		d.bgm.Play()
	}
}

// ToggleBGM switches which background track is audible.
func (d *Driver) ToggleBGM() {
	if d.playOpus {
		d.playOpus = false
		d.buttonLabel = LabelEngine
		d.backend.UserPlayerPause(d.handle)
		if d.bgm != nil {
			d.bgm.Play()
		}
		d.infoText = InfoEngine
	} else {
		d.playOpus = true
		d.buttonLabel = LabelOpus
		d.backend.UserPlayerPlay(d.handle)
		if d.bgm != nil {
			d.bgm.Pause()
		}
		d.infoText = InfoOpus
	}
	log.Debug(log.CatDriver, "BGM toggled", "label", d.buttonLabel)
}

// OnDestroy releases the user player and shuts the backend down.
func (d *Driver) OnDestroy() {
	if d.handle != 0 {
		d.backend.DestroyUserPlayer(d.handle)
		d.handle = 0
	}
	d.backend.Terminate()
}

func (d *Driver) Time() float64          { return d.time }
func (d *Driver) Lane() int              { return d.lane }
func (d *Driver) Handle() plugin.Handle  { return d.handle }
func (d *Driver) PlayingOpus() bool      { return d.playOpus }
func (d *Driver) ButtonLabel() string    { return d.buttonLabel }
func (d *Driver) InfoText() string       { return d.infoText }
func (d *Driver) Markers() [2]Marker     { return d.markers }
func (d *Driver) Marker(lane int) Marker { return d.markers[lane] }

// Triggers counts lane firings since the driver was created.
func (d *Driver) Triggers() int { return d.triggers }
