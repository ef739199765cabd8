package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "privacore/pkg/domain-errors"
)

// EntityID identifies a golden record. The canonical form is a stable prefix
// followed by a zero-padded sequence number, e.g. "E-000042". IDs are
// allocated monotonically and never reused after erasure.
//
// Usage: construct via ParseEntityID at trust boundaries to enforce the
// format; direct casting bypasses validation.
type EntityID string

const (
	entityIDPrefix = "E-"
	entityIDDigits = 6
)

// NewEntityID formats a sequence number as a canonical entity ID.
func NewEntityID(seq int) EntityID {
	return EntityID(fmt.Sprintf("%s%0*d", entityIDPrefix, entityIDDigits, seq))
}

// ParseEntityID constructs an EntityID from external input.
func ParseEntityID(raw string) (EntityID, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "entity ID must not be empty")
	}
	digits, ok := strings.CutPrefix(raw, entityIDPrefix)
	if !ok || len(digits) < entityIDDigits {
		return "", dErrors.New(dErrors.CodeBadRequest, "entity ID must match E-NNNNNN")
	}
	seq, err := strconv.Atoi(digits)
	if err != nil || seq < 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "entity ID must match E-NNNNNN")
	}
	return EntityID(raw), nil
}

func (id EntityID) String() string { return string(id) }

// Seq returns the numeric sequence component, or -1 when the ID is not in
// canonical form.
func (id EntityID) Seq() int {
	digits, ok := strings.CutPrefix(string(id), entityIDPrefix)
	if !ok {
		return -1
	}
	seq, err := strconv.Atoi(digits)
	if err != nil || seq < 0 {
		return -1
	}
	return seq
}
