package upload

// Phase is one stage of the upload pipeline. Phases are strictly sequential;
// the only edges out of order are back to idle, which every abort takes.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseProbing      Phase = "probing"
	PhaseValidating   Phase = "validating"
	PhasePresigning   Phase = "presigning"
	PhaseTransferring Phase = "transferring"
	PhaseEnqueuing    Phase = "enqueuing"
)

// next maps each phase to its successor in the happy path.
var next = map[Phase]Phase{
	PhaseIdle:         PhaseProbing,
	PhaseProbing:      PhaseValidating,
	PhaseValidating:   PhasePresigning,
	PhasePresigning:   PhaseTransferring,
	PhaseTransferring: PhaseEnqueuing,
}

// canAdvance reports whether a transition between two phases is legal.
func canAdvance(from, to Phase) bool {
	if to == PhaseIdle {
		return true
	}
	return next[from] == to
}
