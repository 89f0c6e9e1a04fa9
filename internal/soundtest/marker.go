package soundtest

// Marker is a circle that grows from 0 to MaxScale over AttackTime after it
// fires and then disappears.
type Marker struct {
	remaining float64
	active    bool
}

// Trigger restarts the attack.
func (m *Marker) Trigger() {
	m.remaining = AttackTime
	m.active = true
}

func (m *Marker) Update(dt float64) {
	if !m.active {
		return
	}
	m.remaining -= dt
	if m.remaining < 0 {
		m.active = false
	}
}

func (m Marker) Active() bool { return m.active }

func (m Marker) Remaining() float64 { return m.remaining }

// Scale is 0 for an inactive marker.
func (m Marker) Scale() float64 {
	if !m.active {
		return 0
	}
	return MaxScale * (1 - m.remaining/AttackTime)
}
