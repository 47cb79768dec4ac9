package sim

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestContactSensorToggles(t *testing.T) {
	s := New(Config{Interval: 10 * time.Millisecond})
	defer s.Stop()

	state := s.ContactSensor()
	waitFor(t, state.CurrentState, "contact sensor never toggled on")
	waitFor(t, func() bool { return !state.CurrentState() }, "contact sensor never toggled off")
}

func TestTemperatureStaysBounded(t *testing.T) {
	s := New(Config{Interval: time.Millisecond})
	defer s.Stop()

	const min, max = 2000, 2200
	state := s.TemperatureSensor(2100, min, max)

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		v := state.CurrentValue()
		if v < min || v > max {
			t.Fatalf("temperature %d escaped [%d, %d]", v, min, max)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStopHaltsUpdates(t *testing.T) {
	s := New(Config{Interval: time.Millisecond})
	state := s.ContactSensor()
	waitFor(t, state.CurrentState, "sensor never ticked")

	s.Stop()
	before := state.CurrentState()
	time.Sleep(20 * time.Millisecond)
	if state.CurrentState() != before {
		t.Error("sensor kept toggling after Stop")
	}
}
