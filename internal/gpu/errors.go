package gpu

import (
	"errors"
	"fmt"
)

// Domain errors for device and buffer operations.
var (
	// ErrBufferAllocation indicates the device could not create a buffer.
	ErrBufferAllocation = errors.New("gpu: buffer allocation failed")

	// ErrDeviceDestroyed indicates use of a device after Destroy.
	ErrDeviceDestroyed = errors.New("gpu: device destroyed")

	// ErrBufferDestroyed indicates use of a buffer after it was released.
	ErrBufferDestroyed = errors.New("gpu: buffer destroyed")

	// ErrUnaligned indicates a write whose offset or size is not a multiple of 4.
	ErrUnaligned = errors.New("gpu: write offset and size must be multiples of 4")

	// ErrOutOfRange indicates a write past the end of a buffer.
	ErrOutOfRange = errors.New("gpu: write exceeds buffer size")
)

// AllocationError describes a failed buffer creation.
type AllocationError struct {
	Label  string
	Size   int
	Reason string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("gpu: cannot allocate buffer %q (%d bytes): %s", e.Label, e.Size, e.Reason)
}

func (e *AllocationError) Unwrap() error {
	return ErrBufferAllocation
}
