// Package audit keeps the append-only, tamper-evident record of privileged
// operations. Entries are created once, never mutated, and retained
// indefinitely; there is no update or delete anywhere in this package.
package audit

import (
	"time"

	"github.com/google/uuid"

	"privacore/pkg/domain"
)

// Operation is the closed set of privileged operations the trail records.
type Operation string

const (
	OperationScan    Operation = "scan"
	OperationLink    Operation = "link"
	OperationAccess  Operation = "access"
	OperationErasure Operation = "erasure"
)

// validOperations is the single source of truth for known operations.
var validOperations = map[Operation]bool{
	OperationScan:    true,
	OperationLink:    true,
	OperationAccess:  true,
	OperationErasure: true,
}

// Valid reports whether the operation is a known one.
func (o Operation) Valid() bool { return validOperations[o] }

// Entry is one immutable audit record. The UUID identity guarantees that
// concurrent recorders never collide on storage identity. TraceID carries
// the OTel trace when a span was active, for compliance correlation.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Operation Operation      `json:"operation"`
	Timestamp time.Time      `json:"timestamp_utc"`
	User      string         `json:"user,omitempty"`
	EntityID  string         `json:"entity_id,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewScanEntry records one detector scan: how many rows were inspected,
// which sources, how many fragments came out, and a proof hash over the
// batch for tamper evidence.
func NewScanEntry(user, proofHash string, rows, fragmentsFound int, sourceFiles []string) Entry {
	return Entry{
		Operation: OperationScan,
		User:      user,
		Fields: map[string]any{
			"proof_hash":      proofHash,
			"rows":            rows,
			"fragments_found": fragmentsFound,
			"source_files":    sourceFiles,
		},
	}
}

// NewLinkEntry records one clustering pass.
func NewLinkEntry(user string, threshold float64, entitiesCreated, fragmentsLinked int) Entry {
	return Entry{
		Operation: OperationLink,
		User:      user,
		Fields: map[string]any{
			"threshold":        threshold,
			"entities_created": entitiesCreated,
			"fragments_linked": fragmentsLinked,
		},
	}
}

// NewAccessEntry records one privileged read of an entity.
func NewAccessEntry(user string, entityID domain.EntityID, purpose string) Entry {
	return Entry{
		Operation: OperationAccess,
		User:      user,
		EntityID:  entityID.String(),
		Fields: map[string]any{
			"purpose": purpose,
		},
	}
}

// NewErasureEntry records one completed erasure.
func NewErasureEntry(user string, entityID domain.EntityID, fragmentsDeleted int, requestedBy, reason string) Entry {
	return Entry{
		Operation: OperationErasure,
		User:      user,
		EntityID:  entityID.String(),
		Fields: map[string]any{
			"fragments_deleted": fragmentsDeleted,
			"requested_by":      requestedBy,
			"reason":            reason,
		},
	}
}
