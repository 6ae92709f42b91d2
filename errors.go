package voyager

import (
	"errors"
	"fmt"
	"strings"

	"github.com/canbakiskan/voyager-node/persistence"
	"github.com/canbakiskan/voyager-node/storage"
)

var (
	// ErrEmptyIndex is returned when querying an index with no points.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrCorruptData is returned when a load encounters a malformed stream.
	ErrCorruptData = errors.New("corrupt index data")
)

// ErrUnsupportedStorageType indicates an unknown storage data type.
type ErrUnsupportedStorageType = storage.ErrUnsupportedDataType

// ErrDimensionMismatch indicates a vector whose dimensionality does not
// match the index.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicateLabel indicates an insert with a label already in the index.
type ErrDuplicateLabel struct {
	Label uint64
}

func (e *ErrDuplicateLabel) Error() string {
	return fmt.Sprintf("label %d already exists", e.Label)
}

// ErrUnknownLabel indicates an operation on a label the index never saw.
type ErrUnknownLabel struct {
	Label uint64
}

func (e *ErrUnknownLabel) Error() string {
	return fmt.Sprintf("unknown label %d", e.Label)
}

// ErrCapacityExceeded indicates an insert into a full index, or a resize
// below the number of occupied slots.
type ErrCapacityExceeded struct {
	Capacity  int
	Requested int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: capacity %d, requested %d", e.Capacity, e.Requested)
}

// ErrInvalidParameter indicates an out-of-range or malformed argument.
type ErrInvalidParameter struct {
	Name   string
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}

// ErrMissingParameters indicates a legacy (headerless) load without the
// parameters the stream cannot supply itself.
type ErrMissingParameters struct {
	Missing []string
}

func (e *ErrMissingParameters) Error() string {
	return fmt.Sprintf("legacy index stream requires parameters: %s", strings.Join(e.Missing, ", "))
}

// ErrParameterMismatch indicates a load where a caller-supplied parameter
// conflicts with the stream's own metadata.
type ErrParameterMismatch struct {
	Name     string
	Provided any
	Stored   any
}

func (e *ErrParameterMismatch) Error() string {
	return fmt.Sprintf("parameter %q mismatch: provided %v, stored %v", e.Name, e.Provided, e.Stored)
}

// translateError maps lower-layer errors onto the package's error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrCorrupt) {
		return fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return err
}
