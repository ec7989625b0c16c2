package recovery

import "errors"

var (
	ErrGrantNotFound           = errors.New("recovery day grant not found")
	ErrGrantAlreadyUsed        = errors.New("a linked recovery day grant has already been used")
	ErrJustificationRequired   = errors.New("a justification of at least 10 characters is required to cancel past recovery days")
	ErrNotEnoughAvailableHours = errors.New("requested days exceed the available overtime hours")
	ErrEntryNotConvertible     = errors.New("selected overtime entry is not convertible")
)
