package gate

import (
	"fmt"
	"path"
	"strings"
)

// routeTable classifies request paths. It is built once from Config.
type routeTable struct {
	publicExact  map[string]struct{}
	publicPrefix []string
	protected    []string
	admin        []string
	mfa          [][]string
}

func newRouteTable(cfg Config) (routeTable, error) {
	rt := routeTable{publicExact: make(map[string]struct{})}

	for _, p := range cfg.PublicRoutes {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p != "/" && strings.HasSuffix(p, "/"):
			rt.publicPrefix = append(rt.publicPrefix, p)
			// "/auth/" also covers "/auth"
			rt.publicExact[strings.TrimSuffix(p, "/")] = struct{}{}
		default:
			rt.publicExact[p] = struct{}{}
		}
	}

	for _, p := range cfg.ProtectedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			rt.protected = append(rt.protected, p)
		}
	}
	for _, p := range cfg.AdminPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			rt.admin = append(rt.admin, p)
		}
	}

	for _, p := range cfg.MFARoutes {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		segs := splitPath(p)
		for _, s := range segs {
			if _, err := path.Match(s, ""); err != nil {
				return routeTable{}, fmt.Errorf("%w: mfa route %q: %v", ErrInvalidConfig, p, err)
			}
		}
		rt.mfa = append(rt.mfa, segs)
	}

	return rt, nil
}

func (rt routeTable) isPublic(p string) bool {
	if _, ok := rt.publicExact[p]; ok {
		return true
	}
	for _, prefix := range rt.publicPrefix {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (rt routeTable) isProtected(p string) bool {
	return matchesPrefix(rt.protected, p)
}

func (rt routeTable) isAdmin(p string) bool {
	return matchesPrefix(rt.admin, p)
}

// requiresMFA reports whether any MFA pattern matches the path or one of
// its leading segment sequences.
func (rt routeTable) requiresMFA(p string) bool {
	segs := splitPath(p)
	for _, pattern := range rt.mfa {
		if matchSegments(pattern, segs) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, segs []string) bool {
	if len(segs) < len(pattern) {
		return false
	}
	for i, ps := range pattern {
		if ok, _ := path.Match(ps, segs[i]); !ok {
			return false
		}
	}
	return true
}

// matchesPrefix matches on segment boundaries: "/admin" covers "/admin"
// and "/admin/users" but not "/administrator".
func matchesPrefix(prefixes []string, p string) bool {
	for _, prefix := range prefixes {
		if prefix == "/" || p == prefix {
			return true
		}
		base := strings.TrimSuffix(prefix, "/")
		if strings.HasPrefix(p, base+"/") {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}
