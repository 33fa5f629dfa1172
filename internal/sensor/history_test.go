package sensor

import (
	"testing"
	"time"
)

func TestHistoryAppendAndSamples(t *testing.T) {
	h := NewHistory(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		h.Append("room1", Sample{
			SmokeLevel: float64(i),
			Status:     StatusNormal,
			Timestamp:  now.Add(time.Duration(i) * time.Second),
		})
	}

	samples := h.Samples("room1")
	if len(samples) != 3 {
		t.Fatalf("samples length = %d, want 3", len(samples))
	}
	// Oldest first, oldest two evicted.
	for i, want := range []float64{2, 3, 4} {
		if samples[i].SmokeLevel != want {
			t.Errorf("samples[%d].SmokeLevel = %v, want %v", i, samples[i].SmokeLevel, want)
		}
	}
}

func TestHistoryRoomsAreIndependent(t *testing.T) {
	h := NewHistory(10)
	h.Append("room1", Sample{SmokeLevel: 1})
	h.Append("room2", Sample{SmokeLevel: 2})

	if got := h.Samples("room1"); len(got) != 1 || got[0].SmokeLevel != 1 {
		t.Errorf("room1 samples = %v", got)
	}
	if got := h.Samples("room2"); len(got) != 1 || got[0].SmokeLevel != 2 {
		t.Errorf("room2 samples = %v", got)
	}
}

func TestHistoryUnknownRoomIsEmpty(t *testing.T) {
	h := NewHistory(10)
	if got := h.Samples("room9"); len(got) != 0 {
		t.Errorf("samples = %v, want empty", got)
	}
}

func TestHistoryZeroWindowDisablesRetention(t *testing.T) {
	h := NewHistory(0)
	h.Append("room1", Sample{SmokeLevel: 1})
	if got := h.Samples("room1"); len(got) != 0 {
		t.Errorf("samples = %v, want empty", got)
	}
}
