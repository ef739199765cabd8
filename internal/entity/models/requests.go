package models

// ScanFragment is the wire form of a detected PII mention.
type ScanFragment struct {
	Value  string `json:"value"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// ScanRequest submits a batch of fragments for clustering and persistence.
// Threshold is a pointer so an absent field is distinguishable from an
// explicit value: only absence falls back to the default, an out-of-range
// value is rejected.
type ScanRequest struct {
	Fragments []ScanFragment `json:"fragments"`
	Threshold *float64       `json:"threshold,omitempty"`
}

// EraseRequest identifies the actor and justification behind an erasure.
type EraseRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}
