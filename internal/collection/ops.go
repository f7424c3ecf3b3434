package collection

import (
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
)

// submit durably appends op to the WAL, then hands it to the dispatcher.
// When wait is true it blocks until the dispatcher has applied the
// operation and returns Completed; otherwise it returns Acknowledged as
// soon as the WAL append is durable, per spec.md §4.9's write path.
func (c *Collection) submit(op Operation, wait bool) (Result, error) {
	if c.closed.Load() {
		return Result{}, vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentClosed, "collection is closed")
	}

	data, err := encodeOperation(op)
	if err != nil {
		return Result{}, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeInternal, "failed to encode operation").
			WithOperation("submit")
	}

	seqNo, err := c.wal.Append(data)
	if err != nil {
		return Result{}, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeWalIO, "wal append failed").
			WithOperation("submit")
	}

	var done chan error
	if wait {
		done = make(chan error, 1)
	}

	select {
	case c.dispatchCh <- dispatchRequest{seqNo: seqNo, op: op, done: done}:
	case <-c.stopCh:
		return Result{OperationID: seqNo, Status: Acknowledged}, nil
	}

	if !wait {
		return Result{OperationID: seqNo, Status: Acknowledged}, nil
	}

	if err := <-done; err != nil {
		return Result{OperationID: seqNo, Status: Acknowledged}, err
	}
	return Result{OperationID: seqNo, Status: Completed}, nil
}

func validateIDs(ids []uint64) error {
	if len(ids) == 0 {
		return vcerrors.NewRequiredFieldError("ids")
	}
	return nil
}

// UpsertPoints inserts or overwrites ids, paired with vectors and
// optional payloads, per spec.md §6's UpsertPoints{ids, vectors,
// payloads?}. payloads may be nil, or shorter than ids (missing entries
// mean "no payload for this point").
func (c *Collection) UpsertPoints(ids []uint64, vectors [][]float32, payloads []payload.Payload, wait bool) (Result, error) {
	if err := validateIDs(ids); err != nil {
		return Result{}, err
	}
	if len(vectors) != len(ids) {
		return Result{}, vcerrors.NewFieldRangeError("vectors", len(vectors), len(ids), len(ids))
	}
	for _, v := range vectors {
		if len(v) != int(c.cfg.Params.Size) {
			return Result{}, vcerrors.NewDimensionMismatchError(len(v), int(c.cfg.Params.Size))
		}
	}
	return c.submit(Operation{Kind: OpUpsertPoints, IDs: ids, Vectors: vectors, Payloads: payloads}, wait)
}

// DeletePoints removes ids, per spec.md §6's DeletePoints{ids}.
func (c *Collection) DeletePoints(ids []uint64, wait bool) (Result, error) {
	if err := validateIDs(ids); err != nil {
		return Result{}, err
	}
	return c.submit(Operation{Kind: OpDeletePoints, IDs: ids}, wait)
}

// SetPayload merges patch into every id's current payload, per spec.md
// §6's SetPayload{ids, payload}.
func (c *Collection) SetPayload(ids []uint64, patch payload.Payload, wait bool) (Result, error) {
	if err := validateIDs(ids); err != nil {
		return Result{}, err
	}
	return c.submit(Operation{Kind: OpSetPayload, IDs: ids, Patch: patch}, wait)
}

// DeletePayload removes keys from every id's payload, per spec.md §6's
// DeletePayload{ids, keys}.
func (c *Collection) DeletePayload(ids []uint64, keys []string, wait bool) (Result, error) {
	if err := validateIDs(ids); err != nil {
		return Result{}, err
	}
	return c.submit(Operation{Kind: OpDeletePayload, IDs: ids, Keys: keys}, wait)
}

// ClearPayload removes every id's entire payload, per spec.md §6's
// ClearPayload{ids}.
func (c *Collection) ClearPayload(ids []uint64, wait bool) (Result, error) {
	if err := validateIDs(ids); err != nil {
		return Result{}, err
	}
	return c.submit(Operation{Kind: OpClearPayload, IDs: ids}, wait)
}

// CreateFieldIndex starts maintaining structures for key across every
// segment, per spec.md §6's CreateFieldIndex(key).
func (c *Collection) CreateFieldIndex(key string, wait bool) (Result, error) {
	if key == "" {
		return Result{}, vcerrors.NewRequiredFieldError("key")
	}
	return c.submit(Operation{Kind: OpCreateFieldIndex, Key: key}, wait)
}

// DeleteFieldIndex stops maintaining structures for key across every
// segment, per spec.md §6's DeleteFieldIndex(key).
func (c *Collection) DeleteFieldIndex(key string, wait bool) (Result, error) {
	if key == "" {
		return Result{}, vcerrors.NewRequiredFieldError("key")
	}
	return c.submit(Operation{Kind: OpDeleteFieldIndex, Key: key}, wait)
}
