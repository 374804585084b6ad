package rbac

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Registry is the immutable role table. Inheritance is validated and each
// role's permission closure is computed once at construction, so lookups
// never walk the inheritance graph.
type Registry struct {
	roles   map[string]Role
	closure map[string]PermissionSet
	depth   map[string]int
	order   []string
}

// NewRegistry loads roles from source and builds the registry.
// It fails on empty or duplicate ids, parents that are not defined,
// inheritance cycles and chains deeper than MaxInheritanceDepth.
func NewRegistry(ctx context.Context, source RoleSource) (*Registry, error) {
	if source == nil {
		return nil, errors.Join(ErrSourceLoad, errors.New("role source is nil"))
	}

	loaded, err := source.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrSourceLoad, err)
	}

	roles := make(map[string]Role, len(loaded))
	for _, r := range loaded {
		r = normalizeRole(r.clone())
		if r.ID == "" {
			return nil, errors.Join(ErrInvalidRole, errors.New("role id is empty"))
		}
		if _, dup := roles[r.ID]; dup {
			return nil, errors.Join(ErrDuplicateRole, fmt.Errorf("role %q", r.ID))
		}
		roles[r.ID] = r
	}

	for _, r := range roles {
		for _, parent := range r.Inherits {
			if _, ok := roles[parent]; !ok {
				return nil, errors.Join(ErrUnknownParentRole,
					fmt.Errorf("role %q inherits undefined role %q", r.ID, parent))
			}
		}
	}

	order, err := topoSort(roles)
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		roles:   roles,
		closure: make(map[string]PermissionSet, len(roles)),
		depth:   make(map[string]int, len(roles)),
	}

	// Parents precede children in order, so each closure is the union of the
	// role's own permissions and the already computed parent closures.
	for _, id := range order {
		r := roles[id]
		set := NewPermissionSet(r.Permissions...)
		d := 0
		for _, parent := range r.Inherits {
			set.AddAll(reg.closure[parent])
			d = max(d, reg.depth[parent]+1)
		}
		if d > MaxInheritanceDepth {
			return nil, errors.Join(ErrInheritanceTooDeep,
				fmt.Errorf("role %q has inheritance depth %d, max %d", id, d, MaxInheritanceDepth))
		}
		reg.closure[id] = set
		reg.depth[id] = d
	}

	reg.order = slices.SortedFunc(slices.Values(order), func(a, b string) int {
		return cmp.Or(cmp.Compare(reg.depth[a], reg.depth[b]), cmp.Compare(a, b))
	})

	return reg, nil
}

// topoSort orders roles so that every parent precedes its children (Kahn's
// algorithm). Roles left unprocessed are part of a cycle.
func topoSort(roles map[string]Role) ([]string, error) {
	pending := make(map[string]int, len(roles))
	children := make(map[string][]string, len(roles))
	for id, r := range roles {
		pending[id] = len(r.Inherits)
		for _, parent := range r.Inherits {
			children[parent] = append(children[parent], id)
		}
	}

	var queue []string
	for id, n := range pending {
		if n == 0 {
			queue = append(queue, id)
		}
	}
	slices.Sort(queue)

	order := make([]string, 0, len(roles))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		next := children[id]
		slices.Sort(next)
		for _, child := range next {
			pending[child]--
			if pending[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(roles) {
		var stuck []string
		for id, n := range pending {
			if n > 0 {
				stuck = append(stuck, id)
			}
		}
		slices.Sort(stuck)
		return nil, errors.Join(ErrCircularInheritance,
			fmt.Errorf("roles involved: %s", strings.Join(stuck, ", ")))
	}
	return order, nil
}

// Role returns the definition of the role with the given id.
func (r *Registry) Role(id string) (Role, bool) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, false
	}
	return role.clone(), true
}

// HasRole reports whether the role is defined.
func (r *Registry) HasRole(id string) bool {
	_, ok := r.roles[id]
	return ok
}

// Roles returns all role definitions, base roles first.
func (r *Registry) Roles() []Role {
	out := make([]Role, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.roles[id].clone())
	}
	return out
}

// Permissions returns the role's own permissions plus everything it
// inherits, deduplicated. Unknown roles yield an empty set.
func (r *Registry) Permissions(id string) PermissionSet {
	set, ok := r.closure[id]
	if !ok {
		return PermissionSet{}
	}
	return set.Clone()
}

// RoleHas reports whether the role's closure contains the permission.
func (r *Registry) RoleHas(id string, p Permission) bool {
	return r.closure[id].Has(p)
}

// Depth returns the length of the longest inheritance chain below the role.
func (r *Registry) Depth(id string) int {
	return r.depth[id]
}
