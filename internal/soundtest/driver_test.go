package soundtest

import (
	"fmt"
	"io/fs"
	"testing"
	"testing/fstest"

	"pakaudio/internal/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// recorder is a Backend that logs every call.
type recorder struct {
	calls     []string
	next      plugin.Handle
	destroyed map[plugin.Handle]int
	loadOK    bool
}

func newRecorder() *recorder {
	return &recorder{destroyed: map[plugin.Handle]int{}, loadOK: true}
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) Initialize()      { r.add("init") }
func (r *recorder) Proc()            { r.add("proc") }
func (r *recorder) Pause(pause bool) { r.add("pause %v", pause) }
func (r *recorder) Terminate()       { r.add("terminate") }

func (r *recorder) LoadResourcePack(packID int, filename string, stream bool) bool {
	r.add("load %d %s %v", packID, filename, stream)
	return r.loadOK
}

func (r *recorder) LoadResourcePackFromAsset(_ fs.FS, packID int, filename string, stream bool) bool {
	r.add("load-asset %d %s %v", packID, filename, stream)
	return r.loadOK
}

func (r *recorder) Play(packID, id int, volume float32) {
	r.add("play %d %d %.1f", packID, id, volume)
}

func (r *recorder) CreateUserPlayer(packID, id int) plugin.Handle {
	r.next++
	r.add("create %d %d", packID, id)
	return r.next
}

func (r *recorder) DestroyUserPlayer(h plugin.Handle) {
	r.destroyed[h]++
	r.add("destroy %d", h)
}

func (r *recorder) UserPlayerPlay(h plugin.Handle)  { r.add("uplay %d", h) }
func (r *recorder) UserPlayerPause(h plugin.Handle) { r.add("upause %d", h) }

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeSource struct {
	playing bool
	loop    bool
	shots   int
}

func (f *fakeSource) Play()               { f.playing = true }
func (f *fakeSource) Pause()              { f.playing = false }
func (f *fakeSource) SetLoop(loop bool)   { f.loop = loop }
func (f *fakeSource) PlayOneShot(float64) { f.shots++ }

func newTestDriver() (*Driver, *recorder, *fakeSource, *fakeSource) {
	rec := newRecorder()
	bgm, se := &fakeSource{}, &fakeSource{}
	assets := plugin.FSAssets{FS: fstest.MapFS{}}
	return New(rec, assets, bgm, se, DefaultOptions()), rec, bgm, se
}

func TestStart(t *testing.T) {
	d, rec, bgm, _ := newTestDriver()
	assert.Zero(t, d.Handle())

	d.Start()
	assert.Equal(t, []string{
		"init",
		"load-asset 0 bgm.pak true",
		"load-asset 1 se.pak false",
		"create 0 0",
		"uplay 1",
	}, rec.calls)
	assert.Equal(t, plugin.Handle(1), d.Handle())
	assert.True(t, bgm.loop)
	assert.False(t, bgm.playing)
	assert.Equal(t, LabelOpus, d.ButtonLabel())
	assert.Equal(t, InfoOpus, d.InfoText())
}

func TestStartIgnoresLoadFailures(t *testing.T) {
	d, rec, _, _ := newTestDriver()
	rec.loadOK = false
	d.Start()
	assert.Equal(t, 1, rec.count("uplay 1"))

	d2 := New(rec, plugin.DirAssets("/definitely/not/here"), nil, nil, DefaultOptions())
	d2.Start()
	assert.NotZero(t, d2.Handle())
}

func TestScenario(t *testing.T) {
	d, rec, _, se := newTestDriver()
	d.Start()

	d.Update(1.01)
	assert.True(t, d.Marker(0).Active())
	assert.False(t, d.Marker(1).Active())
	assert.Equal(t, 1, rec.count("play 1 0 1.0"))
	assert.Equal(t, 0, d.Lane())

	d.Update(0.99)
	assert.Equal(t, 1, d.Lane())
	assert.Equal(t, 1, d.Triggers())
	assert.Equal(t, 1, rec.count("play 1 0 1.0"))
	assert.Zero(t, se.shots)
	assert.InDelta(t, 0.0, d.Time(), 1e-9)

	// Lane 1 plays on the engine-side source.
	d.Update(1.0)
	assert.Equal(t, 1, se.shots)
	assert.True(t, d.Marker(1).Active())
	assert.Equal(t, 1, rec.count("play 1 0 1.0"))
}

func TestTriggerOncePerCycle(t *testing.T) {
	d, rec, _, _ := newTestDriver()
	for i := 0; i < 100; i++ {
		d.Update(0.016)
	}
	// 1.6 s: one trigger, still lane 0.
	assert.Equal(t, 1, d.Triggers())
	assert.Equal(t, 1, rec.count("play 1 0 1.0"))
	assert.Equal(t, 0, d.Lane())
}

func TestMarkerAnimation(t *testing.T) {
	var m Marker
	assert.False(t, m.Active())
	assert.Zero(t, m.Scale())

	m.Trigger()
	assert.True(t, m.Active())
	assert.InDelta(t, 0, m.Scale(), 1e-12)

	m.Update(0.25)
	assert.InDelta(t, 2, m.Scale(), 1e-12)

	m.Update(0.25)
	assert.True(t, m.Active(), "remaining 0 is still active")
	assert.InDelta(t, MaxScale, m.Scale(), 1e-12)

	m.Update(0.001)
	assert.False(t, m.Active())
	assert.Zero(t, m.Scale())

	m.Update(1)
	assert.False(t, m.Active())
}

func TestToggleAlternates(t *testing.T) {
	d, rec, bgm, _ := newTestDriver()
	d.Start()

	d.ToggleBGM()
	assert.Equal(t, LabelEngine, d.ButtonLabel())
	assert.Equal(t, InfoEngine, d.InfoText())
	assert.False(t, d.PlayingOpus())
	assert.True(t, bgm.playing)
	assert.Equal(t, 1, rec.count("upause 1"))

	d.ToggleBGM()
	assert.Equal(t, LabelOpus, d.ButtonLabel())
	assert.Equal(t, InfoOpus, d.InfoText())
	assert.True(t, d.PlayingOpus())
	assert.False(t, bgm.playing)
	assert.Equal(t, 2, rec.count("uplay 1"))
}

func TestLifecycleHooks(t *testing.T) {
	d, rec, _, _ := newTestDriver()
	d.Start()
	d.LateUpdate()
	d.OnApplicationPause(true)
	d.OnApplicationPause(false)

	h := d.Handle()
	d.OnDestroy()
	assert.Zero(t, d.Handle())
	d.OnDestroy()

	assert.Equal(t, 1, rec.destroyed[h])
	assert.Equal(t, 2, rec.count("terminate"))
	assert.Equal(t, 1, rec.count("proc"))
	assert.Equal(t, 1, rec.count("pause true"))
	assert.Equal(t, 1, rec.count("pause false"))
}

func TestApplicationPauseCoversEngineBGM(t *testing.T) {
	d, rec, bgm, _ := newTestDriver()
	d.Start()

	d.OnApplicationPause(true)
	d.OnApplicationPause(false)
	assert.False(t, bgm.playing, "engine BGM stays silent while the opus track is active")

	d.ToggleBGM()
	require.True(t, bgm.playing)
	d.OnApplicationPause(true)
	assert.False(t, bgm.playing)
	assert.Equal(t, 2, rec.count("pause true"))
	d.OnApplicationPause(false)
	assert.True(t, bgm.playing)
}

func TestDestroyBeforeStart(t *testing.T) {
	d, rec, _, _ := newTestDriver()
	d.OnDestroy()
	assert.Empty(t, rec.destroyed)
	assert.Equal(t, []string{"terminate"}, rec.calls)
}

func TestDriverWithInertBackend(t *testing.T) {
	d := New(plugin.Inert{}, plugin.FSAssets{FS: fstest.MapFS{}}, nil, nil, DefaultOptions())
	d.Start()
	assert.Zero(t, d.Handle())
	for i := 0; i < 300; i++ {
		d.Update(0.02)
		d.LateUpdate()
	}
	d.ToggleBGM()
	d.OnDestroy()
	assert.Equal(t, 3, d.Triggers())
}

func TestProperty_LanesAlternateWithOneTriggerPerCycle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d, rec, _, se := newTestDriver()
		dts := rapid.SliceOfN(rapid.Float64Range(0.001, 0.5), 1, 500).Draw(t, "dts")

		total := 0.0
		cycles := 0
		prevLane := d.Lane()
		triggersInCycle := 0
		for _, dt := range dts {
			before := d.Triggers()
			d.Update(dt)
			total += dt
			triggersInCycle += d.Triggers() - before

			if d.Lane() != prevLane {
				// INVARIANT: lanes flip 0 <-> 1 and every finished cycle fired exactly once.
				if d.Lane() != 1-prevLane {
					t.Fatalf("lane jumped from %d to %d", prevLane, d.Lane())
				}
				if triggersInCycle != 1 {
					t.Fatalf("cycle %d fired %d times", cycles, triggersInCycle)
				}
				triggersInCycle = 0
				cycles++
				prevLane = d.Lane()
			}
			if triggersInCycle > 1 {
				t.Fatalf("cycle %d fired %d times", cycles, triggersInCycle)
			}
			if d.Time() < 0 || d.Time() >= CyclePeriod {
				t.Fatalf("time %v outside cycle", d.Time())
			}
		}

		if want := int(total / CyclePeriod); cycles < want-1 || cycles > want+1 {
			t.Fatalf("%d cycles after %v", cycles, total)
		}
		lane0 := rec.count("play 1 0 1.0")
		if lane0+se.shots != d.Triggers() {
			t.Fatalf("triggers %d, plays %d + %d", d.Triggers(), lane0, se.shots)
		}
	})
}

func TestProperty_MarkerScale(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var m Marker
		m.Trigger()
		elapsed := 0.0
		for _, dt := range rapid.SliceOfN(rapid.Float64Range(0.001, 0.2), 1, 20).Draw(t, "dts") {
			m.Update(dt)
			elapsed += dt
			if m.Remaining() < 0 {
				if m.Active() {
					t.Fatalf("active with remaining %v", m.Remaining())
				}
				return
			}
			s := m.Scale()
			if s < 0 || s > MaxScale+1e-9 {
				t.Fatalf("scale %v out of range", s)
			}
			want := MaxScale * elapsed / AttackTime
			if diff := s - want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("scale %v, want %v", s, want)
			}
		}
	})
}

func TestProperty_HandleDestroyedAtMostOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d, rec, _, _ := newTestDriver()
		ops := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 30).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				if d.Handle() == 0 {
					d.Start()
				}
			case 1:
				d.OnDestroy()
				if d.Handle() != 0 {
					t.Fatalf("handle %d after destroy", d.Handle())
				}
			case 2:
				d.ToggleBGM()
			case 3:
				d.Update(0.3)
			}
		}
		for h, n := range rec.destroyed {
			if n > 1 {
				t.Fatalf("handle %d destroyed %d times", h, n)
			}
		}
	})
}

func TestToggleLabelsAlternate(t *testing.T) {
	d, _, _, _ := newTestDriver()
	d.Start()
	want := []string{LabelEngine, LabelOpus}
	for i := 0; i < 10; i++ {
		d.ToggleBGM()
		require.Equal(t, want[i%2], d.ButtonLabel(), "toggle %d", i)
	}
}
