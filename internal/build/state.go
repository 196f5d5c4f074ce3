package build

import (
	"strings"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/manifest"
)

// DistType is a distribution target.
type DistType string

const (
	// Local is installed by hand from the .ankiaddon file.
	Local DistType = "local"

	// AnkiWeb is uploaded to AnkiWeb.
	AnkiWeb DistType = manifest.TargetAnkiWeb
)

// DistTypes lists every distribution target in build order.
var DistTypes = []DistType{Local, AnkiWeb}

// Valid reports whether d is a known distribution target.
func (d DistType) Valid() bool {
	return d == Local || d == AnkiWeb
}

// ParseDistType validates a distribution target name.
func ParseDistType(s string) (DistType, error) {
	d := DistType(strings.TrimSpace(s))
	if !d.Valid() {
		return "", errors.New("E110").WithDetailf("%q is not one of local, ankiweb", s)
	}
	return d, nil
}

// State is a pipeline's position in the build lifecycle.
type State int

const (
	StateInitialized State = iota
	StateArchived
	StateAssembled
	StatePackaged
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateArchived:
		return "archived"
	case StateAssembled:
		return "assembled"
	case StatePackaged:
		return "packaged"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further phase may run.
func (s State) IsTerminal() bool {
	return s == StateCleanedUp
}

// isAllowedTransition reports whether a phase ending in to may run from.
//
// A fresh pipeline may assemble or package directly: the staging area can
// come from an earlier process, as when create-dist, build-dist and
// package-dist run as separate commands. Each target cycles through
// Assembled and Packaged again.
func isAllowedTransition(from, to State) bool {
	if to == StateCleanedUp {
		return true
	}
	switch from {
	case StateInitialized:
		return to == StateArchived || to == StateAssembled || to == StatePackaged
	case StateArchived:
		return to == StateAssembled
	case StateAssembled:
		return to == StateAssembled || to == StatePackaged
	case StatePackaged:
		return to == StateAssembled || to == StatePackaged
	default:
		return false
	}
}

// transition moves the pipeline to the next state, or reports why it cannot.
func (p *Pipeline) transition(to State) error {
	if !isAllowedTransition(p.state, to) {
		return errors.New("E118").WithDetailf("cannot move from %s to %s", p.state, to)
	}
	p.state = to
	return nil
}

// checkTransition validates a transition without performing it.
func (p *Pipeline) checkTransition(to State) error {
	if !isAllowedTransition(p.state, to) {
		return errors.New("E118").WithDetailf("cannot move from %s to %s", p.state, to)
	}
	return nil
}
