package statecore

// Mode selects between the development path, which emits advisory warnings
// and runs state-shape checks, and the lean production path, which runs only
// the fatal checks.
type Mode int

const (
	// Development enables advisory warnings and shape checks.
	Development Mode = iota

	// Production skips advisory warnings and shape checks.
	Production
)

// DefaultMode is the mode used when no WithMode option is given.
// It is Development unless the binary is built with -tags production.
const DefaultMode = defaultMode

func (m Mode) String() string {
	if m == Production {
		return "production"
	}
	return "development"
}
