package editor

// ReadyState is the lifecycle of the mounted editor.
type ReadyState int

const (
	NotReady ReadyState = iota
	ReadyUnrestored
	ReadyRestored
)

func (s ReadyState) String() string {
	switch s {
	case ReadyUnrestored:
		return "ready"
	case ReadyRestored:
		return "ready(restored)"
	default:
		return "not_ready"
	}
}

// readiness tracks one mount generation at a time:
//
//	NotReady -> ReadyUnrestored -> ReadyRestored
//
// teardown returns to NotReady and starts a new generation, so the next
// ready signal restores again.
type readiness struct {
	state      ReadyState
	generation uint64
}

// markReady performs the first transition. Duplicate ready signals within a
// generation report false.
func (r *readiness) markReady() bool {
	if r.state != NotReady {
		return false
	}
	r.state = ReadyUnrestored
	return true
}

// claimRestore performs the second transition at most once per cycle.
func (r *readiness) claimRestore() bool {
	if r.state != ReadyUnrestored {
		return false
	}
	r.state = ReadyRestored
	return true
}

func (r *readiness) teardown() {
	r.state = NotReady
	r.generation++
}

func (r *readiness) ready() bool {
	return r.state != NotReady
}
