package gspn

import "errors"

// Sentinel errors returned by the net structure and fire control. Wrap with
// fmt.Errorf("%w: ...", Err...) to add context; callers compare with errors.Is.
var (
	ErrInvalidStructure    = errors.New("gspn: invalid structure")
	ErrDuplicateName       = errors.New("gspn: duplicate name")
	ErrUnknownName         = errors.New("gspn: unknown name")
	ErrInvalidTokenType    = errors.New("gspn: invalid token type")
	ErrNoEnabledTransition = errors.New("gspn: no enabled transition")
	ErrBadSample           = errors.New("gspn: bad sample")
)
