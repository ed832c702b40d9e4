package domain

import "fmt"

// ContestPolicy decides what happens to hold accumulators of a control point that is
// contested or empty during a territory tick.
type ContestPolicy string

const (
	ContestFreeze ContestPolicy = "freeze"
	ContestDecay  ContestPolicy = "decay"
	ContestReset  ContestPolicy = "reset"
)

// ParseContestPolicy validates a configured policy name. Empty means freeze.
func ParseContestPolicy(s string) (ContestPolicy, error) {
	switch ContestPolicy(s) {
	case "", ContestFreeze:
		return ContestFreeze, nil
	case ContestDecay, ContestReset:
		return ContestPolicy(s), nil
	}
	return "", fmt.Errorf("%w: contest policy %q", ErrInvalidInput, s)
}
