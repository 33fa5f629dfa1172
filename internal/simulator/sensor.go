package simulator

import (
	"math"
	"math/rand"
	"sync"
)

// Simulation modes.
const (
	ModeRealistic = "realistic"
	ModeRandom    = "random"
	ModeTest      = "test"
)

// Signal generation constants.
const (
	baselineLevel = 5.0
	maxLevel      = 100.0

	// Realistic mode: rare fire events that grow, peak, and decay.
	fireIgniteChance = 0.005
	fireDecayRate    = 0.95
	fireMinPeak      = 60.0
	fireFloor        = 0.5

	// Random mode: bounded walk with occasional spikes.
	walkStep     = 4.0
	spikeChance  = 0.02
	spikeMax     = 30.0
	walkDecay    = 0.98
	testCycleSec = 120

	// warningBandRatio is where the sensor's self-reported status turns
	// to warning, slightly below Core's alarm threshold.
	warningBandRatio = 0.7
)

// sensitivityScale maps a sensitivity setting to a signal multiplier.
var sensitivityScale = map[string]float64{
	"low":    0.5,
	"medium": 1.0,
	"high":   1.5,
}

// Sensor is one simulated smoke sensor. All methods are safe for
// concurrent use; the publish loop and control handlers run in different
// goroutines.
type Sensor struct {
	mu sync.Mutex

	roomID      string
	mode        string
	rng         *rand.Rand
	level       float64
	threshold   float64
	sensitivity float64
	tick        int

	// Realistic-mode fire event state.
	fireActive bool
	fireLevel  float64
	fireGrowth float64
	firePeak   float64

	// Remaining ticks of a forced test spike.
	testTicks int
}

// NewSensor creates a simulated sensor for a room. The rng is owned by
// the sensor; give each sensor its own.
func NewSensor(roomID, mode string, threshold float64, rng *rand.Rand) *Sensor {
	return &Sensor{
		roomID:      roomID,
		mode:        mode,
		rng:         rng,
		level:       baselineLevel,
		threshold:   threshold,
		sensitivity: 1.0,
	}
}

// Step advances the simulation one tick and returns the new smoke level.
func (s *Sensor) Step() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++

	if s.testTicks > 0 {
		s.testTicks--
		s.level = clamp(s.threshold + 10)
		return s.level
	}

	switch s.mode {
	case ModeRandom:
		s.stepRandom()
	case ModeTest:
		s.stepTest()
	default:
		s.stepRealistic()
	}

	return s.level
}

// stepRealistic produces a quiet baseline with rare fire events that grow
// to a peak and then decay.
func (s *Sensor) stepRealistic() {
	switch {
	case s.fireActive:
		s.fireLevel += s.fireGrowth
		if s.fireLevel >= s.firePeak {
			s.fireActive = false
		}
	case s.fireLevel > fireFloor:
		s.fireLevel *= fireDecayRate
	default:
		s.fireLevel = 0
		if s.rng.Float64() < fireIgniteChance {
			s.fireActive = true
			s.fireGrowth = 1 + s.rng.Float64()*2
			s.firePeak = fireMinPeak + s.rng.Float64()*(maxLevel-fireMinPeak)
		}
	}

	drift := math.Sin(float64(s.tick)*0.1)*2 + (s.rng.Float64()*2 - 1)
	s.level = clamp(baselineLevel + drift + s.fireLevel*s.sensitivity)
}

// stepRandom walks the level around with occasional spikes that decay.
func (s *Sensor) stepRandom() {
	s.level += (s.rng.Float64() - 0.5) * walkStep * s.sensitivity
	if s.rng.Float64() < spikeChance {
		s.level += s.rng.Float64() * spikeMax * s.sensitivity
	}
	if s.level > baselineLevel {
		s.level *= walkDecay
	}
	s.level = clamp(s.level)
}

// stepTest runs a deterministic cycle: quiet, ramp up past any sane
// threshold, hold, ramp down. One full cycle takes testCycleSec ticks at
// one tick per second.
func (s *Sensor) stepTest() {
	const (
		quietEnd = 30
		rampEnd  = 60
		holdEnd  = 90
		peak     = 80.0
	)

	phase := s.tick % testCycleSec
	switch {
	case phase < quietEnd:
		s.level = baselineLevel
	case phase < rampEnd:
		progress := float64(phase-quietEnd) / float64(rampEnd-quietEnd)
		s.level = baselineLevel + (peak-baselineLevel)*progress
	case phase < holdEnd:
		s.level = peak
	default:
		progress := float64(phase-holdEnd) / float64(testCycleSec-holdEnd)
		s.level = peak - (peak-baselineLevel)*progress
	}
}

// Status returns the sensor's self-reported status for its current level.
func (s *Sensor) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.level >= s.threshold:
		return "alarm"
	case s.level >= s.threshold*warningBandRatio:
		return "warning"
	default:
		return "normal"
	}
}

// Level returns the current smoke level without advancing the simulation.
func (s *Sensor) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Reset returns the sensor to its quiet baseline state.
func (s *Sensor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = baselineLevel
	s.fireActive = false
	s.fireLevel = 0
	s.testTicks = 0
}

// SetThreshold updates the threshold used for self-reported status.
func (s *Sensor) SetThreshold(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = value
}

// SetSensitivity adjusts the signal multiplier. Unknown levels are ignored.
func (s *Sensor) SetSensitivity(level string) bool {
	scale, ok := sensitivityScale[level]
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensitivity = scale
	return true
}

// TriggerTest forces the level above the threshold for a handful of ticks
// so the full alarm path can be exercised on demand.
func (s *Sensor) TriggerTest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testTicks = 5
}

// clamp bounds a level to [0,100].
func clamp(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > maxLevel {
		return maxLevel
	}
	return level
}
