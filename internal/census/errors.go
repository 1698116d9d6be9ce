package census

import "errors"

var (
	// ErrSchemaInvalid is returned when a relation lacks a text name column
	// or a blob triangulation column
	ErrSchemaInvalid = errors.New("not a valid manifold table")
	// ErrNotFound is returned when no single row has the requested ordinal,
	// or when a lookup finds no row for a name
	ErrNotFound = errors.New("manifold not found")
	// ErrKeyNotFound is returned when no single row has the requested name
	ErrKeyNotFound = errors.New("manifold name not found")
	// ErrAmbiguousName is returned when a lookup finds more than one row
	// for a name in one relation
	ErrAmbiguousName = errors.New("manifold name is ambiguous")
	// ErrUnsupportedSlice is returned for slices with a step
	ErrUnsupportedSlice = errors.New("slices with steps are not supported")
	// ErrInvalidIndexType is returned for mixed ordinal and volume bounds
	// or an unrecognized key
	ErrInvalidIndexType = errors.New("use two ordinals or two volumes for start and stop")
	// ErrTableUnavailable is returned by the registry for a census whose
	// source could not be opened
	ErrTableUnavailable = errors.New("census table unavailable")
)
