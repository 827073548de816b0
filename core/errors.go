package core

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceSizeMismatch is matched by *ResourceSizeMismatchError.
	ErrResourceSizeMismatch = errors.New("resource size mismatch")
	// ErrUnsupportedFeatureCombination is matched by *UnsupportedFeatureCombinationError.
	ErrUnsupportedFeatureCombination = errors.New("unsupported feature combination")
	// ErrShaderCompile is matched by *ShaderCompileError.
	ErrShaderCompile = errors.New("shader compile error")
	// ErrContextLost is returned by operations that cannot complete while the GPU context is gone.
	ErrContextLost = errors.New("gpu context lost")
	// ErrFramebufferIncomplete wraps a non-complete framebuffer status.
	ErrFramebufferIncomplete = errors.New("framebuffer incomplete")
)

// ResourceSizeMismatchError reports a re-upload of a resource whose byte length
// changed after its first GPU allocation. The resource must be disposed and recreated.
type ResourceSizeMismatchError struct {
	Resource  string
	ID        uint64
	Allocated int
	Requested int
}

func (e *ResourceSizeMismatchError) Error() string {
	return fmt.Sprintf("%s %d: byte size changed from %d to %d after allocation; dispose and recreate it",
		e.Resource, e.ID, e.Allocated, e.Requested)
}

func (e *ResourceSizeMismatchError) Is(target error) bool {
	return target == ErrResourceSizeMismatch
}

// UnsupportedFeatureCombinationError reports an invalid resource configuration
// detected at setup time.
type UnsupportedFeatureCombinationError struct {
	Feature string
	Detail  string
}

func (e *UnsupportedFeatureCombinationError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Detail)
}

func (e *UnsupportedFeatureCombinationError) Is(target error) bool {
	return target == ErrUnsupportedFeatureCombination
}

// ShaderCompileError carries the driver log and the numbered source lines around
// the failing line.
type ShaderCompileError struct {
	Stage   string // "vertex", "fragment" or "link"
	Key     string
	Line    int // 0 when the log has no line number
	Log     string
	Context string
}

func (e *ShaderCompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s shader failed at line %d: %s", e.Stage, e.Line, e.Log)
	}
	return fmt.Sprintf("%s shader failed: %s", e.Stage, e.Log)
}

func (e *ShaderCompileError) Is(target error) bool {
	return target == ErrShaderCompile
}
