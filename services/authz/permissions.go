package authz

import "sort"

// PermissionSet is the set of permission names a principal holds
type PermissionSet map[string]struct{}

// UnionPermissions merges permission name lists into a single set.
// The result depends only on the inputs, never on their order.
func UnionPermissions(lists ...[]string) PermissionSet {
	set := make(PermissionSet)
	for _, names := range lists {
		for _, name := range names {
			set[name] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains permission
func (s PermissionSet) Has(permission string) bool {
	_, ok := s[permission]
	return ok
}

// Names returns the permissions in sorted order
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
