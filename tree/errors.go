package tree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSealed is returned by Push after Build has been called.
var ErrSealed = errors.New("tree builder is sealed")

// InvalidPathError reports a path or node name that cannot be parsed.
type InvalidPathError struct {
	Path   string
	Module string
	Err    error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %s in module %s: %v", e.Path, e.Module, e.Err)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

// UnreachableRootError reports a definition whose parent path never existed.
type UnreachableRootError struct {
	Path            string
	ClosestAncestor string
	Module          string
}

func (e *UnreachableRootError) Error() string {
	return fmt.Sprintf("module %s defines %s, but its parent does not exist; closest existing ancestor is %s",
		e.Module, e.Path, e.ClosestAncestor)
}

// RootDeletionError reports an attempt to delete the root node.
type RootDeletionError struct {
	Module string
}

func (e *RootDeletionError) Error() string {
	return fmt.Sprintf("module %s tries to delete the root node", e.Module)
}

// MissingSiblingError reports a same-name-sibling index that would leave a gap.
type MissingSiblingError struct {
	Path    string
	Missing string
	Module  string
}

func (e *MissingSiblingError) Error() string {
	return fmt.Sprintf("module %s defines %s, but same-name sibling %s does not exist", e.Module, e.Path, e.Missing)
}

// DeleteAndMergeConflictError reports a node that is deleted and given content
// by the same definition node without the explicit merge mode.
type DeleteAndMergeConflictError struct {
	Path   string
	Module string
}

func (e *DeleteAndMergeConflictError) Error() string {
	return fmt.Sprintf("module %s both deletes and defines content for %s; request the merge delete mode to recreate the node", e.Module, e.Path)
}

// InvalidOrderBeforeError reports an order-before target that cannot be honoured.
type InvalidOrderBeforeError struct {
	Path   string
	Target string
	Reason string
	Module string
}

func (e *InvalidOrderBeforeError) Error() string {
	return fmt.Sprintf("module %s: invalid order-before %q on %s: %s", e.Module, e.Target, e.Path, e.Reason)
}

// PropertyTypeConflictError reports a single/list mismatch.
type PropertyTypeConflictError struct {
	Path        string
	Kind        string
	PriorKind   string
	Module      string
	PriorModule string
}

func (e *PropertyTypeConflictError) Error() string {
	return fmt.Sprintf("module %s defines %s as %s, but module %s declared it as %s; use operation override to change it",
		e.Module, e.Path, e.Kind, e.PriorModule, e.PriorKind)
}

// PropertyValueTypeConflictError reports a value type mismatch.
type PropertyValueTypeConflictError struct {
	Path           string
	ValueType      string
	PriorValueType string
	Module         string
	PriorModule    string
}

func (e *PropertyValueTypeConflictError) Error() string {
	return fmt.Sprintf("module %s defines %s with type %s, but module %s declared it with type %s; use operation override to change it",
		e.Module, e.Path, e.ValueType, e.PriorModule, e.PriorValueType)
}

// PrimaryTypeOverrideError reports a replace that would change a primary type.
type PrimaryTypeOverrideError struct {
	Path        string
	Value       string
	PriorValue  string
	Module      string
	PriorModule string
}

func (e *PrimaryTypeOverrideError) Error() string {
	return fmt.Sprintf("module %s changes %s from %q (module %s) to %q; use operation override to change the primary type",
		e.Module, e.Path, e.PriorValue, e.PriorModule, e.Value)
}

// MixinRemovalError reports a replace that would drop mixins.
type MixinRemovalError struct {
	Path        string
	Removed     []string
	Module      string
	PriorModule string
}

func (e *MixinRemovalError) Error() string {
	return fmt.Sprintf("module %s replaces %s and drops mixins [%s] declared by module %s; use operation override to remove mixins",
		e.Module, e.Path, strings.Join(e.Removed, ", "), e.PriorModule)
}

// ProtectedPropertyError reports an attempt to delete a property that every
// node must keep.
type ProtectedPropertyError struct {
	Path   string
	Module string
}

func (e *ProtectedPropertyError) Error() string {
	return fmt.Sprintf("module %s tries to delete %s, which cannot be deleted", e.Module, e.Path)
}

// InvalidValueError reports a property whose values do not match its
// declaration.
type InvalidValueError struct {
	Path   string
	Module string
	Err    error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("module %s: invalid value for %s: %v", e.Module, e.Path, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// InvalidOperationError reports an operation that cannot apply to the property.
type InvalidOperationError struct {
	Path      string
	Operation string
	Reason    string
	Module    string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("module %s: operation %s on %s: %s", e.Module, e.Operation, e.Path, e.Reason)
}
