package verify

import "github.com/hashicorp/go-hclog"

// State is a step of a launch check.
type State int

const (
	StateStart State = iota
	StateConnected
	StateInfoFetched
	StateArgvValidated
	StatePermissionsResolved
	StateDecided
	StateFailed
)

var stateNames = [...]string{
	StateStart:               "start",
	StateConnected:           "connected",
	StateInfoFetched:         "info-fetched",
	StateArgvValidated:       "argv-validated",
	StatePermissionsResolved: "permissions-resolved",
	StateDecided:             "decided",
	StateFailed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func transition(logger hclog.Logger, from, to State) State {
	logger.Debug("launch check", "from", from.String(), "state", to.String())
	return to
}
