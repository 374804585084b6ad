// Package rbac implements role-based access control for the portal.
//
// A Registry holds immutable role definitions. Roles may inherit other
// roles; the registry rejects undefined parents, cycles and chains deeper
// than MaxInheritanceDepth, and precomputes each role's permission closure
// so checks never walk the graph.
//
// A Resolver keeps one profile per user: assigned roles, custom grants,
// explicit denials and grants scoped to a single resource. HasPermission
// evaluates them in a fixed order:
//
//  1. denied permissions always lose
//  2. custom grants
//  3. grants on the requested resource, when one is given
//  4. the closure of every assigned role
//
// Unknown users are denied.
//
// Basic usage:
//
//	reg, err := rbac.NewRegistry(ctx, rbac.NewDefaultRoleSource())
//	if err != nil {
//		return err
//	}
//	res := rbac.NewResolver(reg, rbac.WithStore(store))
//	defer res.Close(ctx)
//
//	_ = res.AssignRole("u-1", "manager")
//	_ = res.DenyPermission("u-1", rbac.DocumentsEdit)
//
//	res.Can("u-1", rbac.DocumentsView) // true
//	res.Can("u-1", rbac.DocumentsEdit) // false
//
// Roles can also be loaded from YAML with NewYAMLRoleSource.
//
// Profiles are authoritative in memory. With a ProfileStore configured,
// each change is queued on an async.Writer and persisted in the background.
package rbac
