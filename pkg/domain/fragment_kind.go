package domain

import dErrors "privacore/pkg/domain-errors"

// FragmentKind is the closed set of PII categories the detector may emit.
// Keeping it an enumeration instead of free text catches detector/linker
// mismatches at the boundary rather than deep inside the store.
type FragmentKind string

// Supported fragment kinds. These align with the categories the detection
// subsystem emits today; extending the set means adding a constant here and
// to validFragmentKinds.
const (
	KindPerson     FragmentKind = "PERSON"
	KindEmail      FragmentKind = "EMAIL"
	KindPhone      FragmentKind = "PHONE_NUMBER"
	KindNationalID FragmentKind = "NATIONAL_ID"
	KindAddress    FragmentKind = "ADDRESS"
	KindIBAN       FragmentKind = "IBAN"
	KindIPAddress  FragmentKind = "IP_ADDRESS"
)

// validFragmentKinds is the single source of truth for known kinds.
var validFragmentKinds = map[FragmentKind]bool{
	KindPerson:     true,
	KindEmail:      true,
	KindPhone:      true,
	KindNationalID: true,
	KindAddress:    true,
	KindIBAN:       true,
	KindIPAddress:  true,
}

// ParseFragmentKind constructs a FragmentKind from external input.
func ParseFragmentKind(raw string) (FragmentKind, error) {
	kind := FragmentKind(raw)
	if !validFragmentKinds[kind] {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown fragment kind: "+raw)
	}
	return kind, nil
}

func (k FragmentKind) String() string { return string(k) }
