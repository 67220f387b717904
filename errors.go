package seiretsu

import "errors"

var (
	// ErrDeadEntity is returned when an operation names an entity that has
	// been despawned (or never existed in this World).
	ErrDeadEntity = errors.New("seiretsu: entity is not alive")
	// ErrDuplicateComponent is returned when adding a type expression the
	// entity already carries.
	ErrDuplicateComponent = errors.New("seiretsu: component already present")
	// ErrMissingComponent is returned when reading or removing a type
	// expression the entity does not carry.
	ErrMissingComponent = errors.New("seiretsu: component not present")
	// ErrTypeMismatch is returned when a typed accessor is used on a column
	// whose element type differs, or a boxed value does not fit its column.
	ErrTypeMismatch = errors.New("seiretsu: component type mismatch")
	// ErrInvalidRange is returned for capacities, indexes and counts outside
	// their valid bounds.
	ErrInvalidRange = errors.New("seiretsu: argument out of range")
	// ErrInvalidExpression is returned when a wildcard is used where a
	// concrete type expression is required (adding or reading a value).
	ErrInvalidExpression = errors.New("seiretsu: wildcard not allowed here")
	// ErrModeConflict is returned by GC while the World is locked, and by
	// unbalanced Unlock calls.
	ErrModeConflict = errors.New("seiretsu: operation conflicts with world mode")
	// ErrConcurrentModification is raised when an archetype changes while it
	// is being enumerated outside the lock discipline.
	ErrConcurrentModification = errors.New("seiretsu: archetype modified during enumeration")
	// ErrBatchConflict is returned when a batch operation is not provable
	// under the issuing query's mask, or contradicts another operation of
	// the same batch.
	ErrBatchConflict = errors.New("seiretsu: batch conflict")
	// ErrTooManyTypes is raised when a Registry runs out of type ids.
	ErrTooManyTypes = errors.New("seiretsu: too many component types")
	// ErrUnregisteredType is returned when a type id is unknown to the
	// World's registry.
	ErrUnregisteredType = errors.New("seiretsu: unregistered component type")
	// ErrUncomparableLink is returned when a link object cannot be used as
	// an interning key.
	ErrUncomparableLink = errors.New("seiretsu: link object is not comparable")
	// ErrDuplicateResource is returned when storing a second resource of
	// one type.
	ErrDuplicateResource = errors.New("seiretsu: resource already present")
)
