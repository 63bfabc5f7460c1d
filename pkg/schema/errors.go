package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDefinition is matched by every IntegrityError.
var ErrInvalidDefinition = errors.New("invalid wizard definition")

// Issue is a single problem found in a definition.
type Issue struct {
	Path   string // e.g. "fields[2].pattern" or "/steps/0"
	Reason string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Reason
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Reason)
}

// IntegrityError aggregates every issue found while checking a definition.
type IntegrityError struct {
	WizardID string
	Issues   []Issue
}

func (e *IntegrityError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("wizard %q: %s", e.WizardID, e.Issues[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "wizard %q: %d integrity errors:\n", e.WizardID, len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue)
	}
	return b.String()
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrInvalidDefinition
}

// Issues returns the issues carried by err, if it is an IntegrityError.
// Otherwise returns nil.
func Issues(err error) []Issue {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie.Issues
	}
	return nil
}
