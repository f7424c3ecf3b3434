package collection

import "github.com/iamNilotpal/vectorcollection/internal/payload"

// OpKind identifies which update operation an Operation carries — the
// "payload_bytes encodes one of the update operations" tag spec.md §4.9
// describes.
type OpKind uint8

const (
	OpUpsertPoints OpKind = iota
	OpDeletePoints
	OpSetPayload
	OpDeletePayload
	OpClearPayload
	OpCreateFieldIndex
	OpDeleteFieldIndex
)

// Operation is the single envelope every WAL record carries, covering
// every update spec.md §6 names: UpsertPoints{ids,vectors,payloads?},
// DeletePoints{ids}, SetPayload{ids,payload}, DeletePayload{ids,keys},
// ClearPayload{ids}, CreateFieldIndex(key), DeleteFieldIndex(key). Only
// the fields relevant to Kind are populated; the rest are zero.
type Operation struct {
	Kind OpKind

	IDs     []uint64
	Vectors [][]float32
	// Payloads is parallel to IDs for UpsertPoints; nil entries mean "no
	// payload for this point".
	Payloads []payload.Payload

	// Patch is SetPayload's merge patch, applied to every id in IDs.
	Patch payload.Payload
	// Keys is DeletePayload's key subset, removed from every id in IDs.
	Keys []string

	// Key is CreateFieldIndex/DeleteFieldIndex's target payload field.
	Key string
}

// ResultStatus is the Acknowledged|Completed status spec.md §6's result
// envelope names.
type ResultStatus string

const (
	// Acknowledged means the operation is durable in the WAL but may not
	// yet be visible to reads — returned immediately after Append.
	Acknowledged ResultStatus = "Acknowledged"
	// Completed means the operation has also been dispatched to its
	// segment(s) and is now visible to reads — returned only when the
	// caller requested synchronous semantics (spec.md §4.9 step 3).
	Completed ResultStatus = "Completed"
)

// Result is the update result envelope spec.md §6 describes:
// {operation_id: seq_no, status: Acknowledged|Completed}.
type Result struct {
	OperationID uint64
	Status      ResultStatus
}
