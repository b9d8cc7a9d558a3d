// Provides common weave errors definitions.
package weave_errors

import "errors"

var (
	ErrCausalityViolation    = errors.New("weave: version vector can not go back")
	ErrContainerTypeConflict = errors.New("weave: container type conflict")
	ErrMissingDependency     = errors.New("weave: missing dependency")
	ErrUnknownContainer      = errors.New("weave: unknown container")
	ErrBadChange             = errors.New("weave: bad change")
	ErrBadRecord             = errors.New("weave: bad record")
	ErrOutOfRange            = errors.New("weave: position out of range")
	ErrClosed                = errors.New("weave: store closed")
)
