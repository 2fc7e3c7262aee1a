package wrapped

import "time"

// GateKey names one of the four reveal boundaries in an UnlockSchedule.
type GateKey string

const (
	GateMajorMinor GateKey = "major_minor"
	GateHometown   GateKey = "hometown"
	GateHobbies    GateKey = "hobbies"
	GateFull       GateKey = "full"
)

// UnlockSchedule is the fixed set of reveal timestamps for a party. Values are
// expected to be non-decreasing by convention; nothing enforces it, and
// ComputeGateState stays well-defined for any ordering.
type UnlockSchedule struct {
	MajorMinorAt time.Time `json:"major_minor_at"`
	HometownAt   time.Time `json:"hometown_at"`
	HobbiesAt    time.Time `json:"hobbies_at"`
	FullAt       time.Time `json:"full_at"`
}

// At returns the schedule timestamp for a gate key.
func (s UnlockSchedule) At(key GateKey) (time.Time, bool) {
	switch key {
	case GateMajorMinor:
		return s.MajorMinorAt, true
	case GateHometown:
		return s.HometownAt, true
	case GateHobbies:
		return s.HobbiesAt, true
	case GateFull:
		return s.FullAt, true
	default:
		return time.Time{}, false
	}
}

// GateState is derived from (now, schedule) and never stored.
type GateState struct {
	MajorMinorUnlocked bool       `json:"major_minor_unlocked"`
	HometownUnlocked   bool       `json:"hometown_unlocked"`
	HobbiesUnlocked    bool       `json:"hobbies_unlocked"`
	FullUnlocked       bool       `json:"full_unlocked"`
	NextUnlockAt       *time.Time `json:"next_unlock_at,omitempty"`
}

// Unlocked reports whether the gate for key has passed. Unknown keys are open.
func (g GateState) Unlocked(key GateKey) bool {
	switch key {
	case GateMajorMinor:
		return g.MajorMinorUnlocked
	case GateHometown:
		return g.HometownUnlocked
	case GateHobbies:
		return g.HobbiesUnlocked
	case GateFull:
		return g.FullUnlocked
	default:
		return true
	}
}

// ComputeGateState evaluates the schedule at now. A gate is unlocked iff
// now >= its timestamp (closed lower bound), and NextUnlockAt is the earliest
// timestamp strictly after now, nil once everything has unlocked.
func ComputeGateState(now time.Time, schedule UnlockSchedule) GateState {
	state := GateState{
		MajorMinorUnlocked: !now.Before(schedule.MajorMinorAt),
		HometownUnlocked:   !now.Before(schedule.HometownAt),
		HobbiesUnlocked:    !now.Before(schedule.HobbiesAt),
		FullUnlocked:       !now.Before(schedule.FullAt),
	}

	for _, ts := range []time.Time{schedule.MajorMinorAt, schedule.HometownAt, schedule.HobbiesAt, schedule.FullAt} {
		if !ts.After(now) {
			continue
		}
		if state.NextUnlockAt == nil || ts.Before(*state.NextUnlockAt) {
			next := ts
			state.NextUnlockAt = &next
		}
	}

	return state
}
