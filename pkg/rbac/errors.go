package rbac

import "errors"

// Domain errors for RBAC operations.
var (
	// ErrInvalidRole is returned when a role does not exist or is malformed.
	ErrInvalidRole = errors.New("rbac.invalid_role")

	// ErrDuplicateRole is returned when a role id is defined more than once.
	ErrDuplicateRole = errors.New("rbac.duplicate_role")

	// ErrUnknownParentRole is returned when a role inherits from a role that is not defined.
	ErrUnknownParentRole = errors.New("rbac.unknown_parent_role")

	// ErrCircularInheritance is returned when roles have circular inheritance.
	ErrCircularInheritance = errors.New("rbac.circular_inheritance")

	// ErrInheritanceTooDeep is returned when an inheritance chain exceeds MaxInheritanceDepth.
	ErrInheritanceTooDeep = errors.New("rbac.inheritance_too_deep")

	// ErrInvalidArgument is returned when a user id, permission or resource reference is empty.
	ErrInvalidArgument = errors.New("rbac.invalid_argument")

	// ErrSourceLoad is returned when a RoleSource cannot be read or parsed.
	ErrSourceLoad = errors.New("rbac.source_load_failed")
)
