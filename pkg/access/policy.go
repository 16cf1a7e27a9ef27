package access

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moviecrew/moviecrew/pkg/auth"
)

type policyKey struct {
	role     auth.Role
	action   Action
	resource Resource
}

// Policy is the role-permission table: a static mapping from
// (role, action, resource type) to a grant level. Unknown triples
// resolve to GrantNone (fail-closed). A Policy is immutable once built
// and is injected into the Engine rather than held as process state.
type Policy struct {
	grants map[policyKey]GrantLevel
}

// Grant looks up the grant level for (role, action, resourceType).
// The level is implied by the action's scope: granting an own-scoped
// action yields GrantOwn, an any-scoped action GrantAny.
func (p *Policy) Grant(role auth.Role, action Action, resource Resource) GrantLevel {
	if p == nil {
		return GrantNone
	}
	return p.grants[policyKey{role, action, resource}]
}

// PolicyBuilder accumulates grants before freezing them into a Policy.
type PolicyBuilder struct {
	grants map[policyKey]GrantLevel
}

// NewPolicyBuilder creates an empty policy builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{grants: make(map[policyKey]GrantLevel)}
}

// Allow grants the given actions to role on resource.
func (b *PolicyBuilder) Allow(role auth.Role, resource Resource, actions ...Action) *PolicyBuilder {
	for _, a := range actions {
		level := GrantOwn
		if a.Scope == ScopeAny {
			level = GrantAny
		}
		b.grants[policyKey{role, a, resource}] = level
	}
	return b
}

// Build freezes the accumulated grants into an immutable Policy.
func (b *PolicyBuilder) Build() *Policy {
	grants := make(map[policyKey]GrantLevel, len(b.grants))
	for k, v := range b.grants {
		grants[k] = v
	}
	return &Policy{grants: grants}
}

// DefaultPolicy returns the built-in role-permission table.
//
// Regular users operate on their own resources and read public ones;
// moderators can read and act on any social-graph resource; admins can
// do everything without ownership checks.
func DefaultPolicy() *Policy {
	b := NewPolicyBuilder()

	b.Allow(auth.RoleUser, ResourceUser, CreateOwn, ReadAny, ReadOwn, UpdateOwn, DeleteOwn)
	b.Allow(auth.RoleUser, ResourceMovie, CreateOwn, ReadAny, ReadOwn, UpdateOwn, DeleteOwn)
	b.Allow(auth.RoleUser, ResourceGroup, CreateOwn, ReadAny, ReadOwn, UpdateOwn, DeleteOwn)
	b.Allow(auth.RoleUser, ResourceFriend, CreateOwn, ReadOwn, DeleteOwn)
	b.Allow(auth.RoleUser, ResourceFollowUser, CreateOwn, ReadOwn, DeleteOwn)
	b.Allow(auth.RoleUser, ResourceLike, CreateOwn, ReadOwn, DeleteOwn)

	b.Allow(auth.RoleModerator, ResourceUser, ReadAny)
	b.Allow(auth.RoleModerator, ResourceMovie, ReadAny, UpdateAny, DeleteAny)
	b.Allow(auth.RoleModerator, ResourceGroup, ReadAny, UpdateAny, DeleteAny)
	b.Allow(auth.RoleModerator, ResourceFriend, ReadAny, DeleteAny)
	b.Allow(auth.RoleModerator, ResourceFollowUser, ReadAny, DeleteAny)
	b.Allow(auth.RoleModerator, ResourceLike, ReadAny, DeleteAny)

	all := []Action{CreateOwn, CreateAny, ReadOwn, ReadAny, UpdateOwn, UpdateAny, DeleteOwn, DeleteAny}
	for _, r := range []Resource{ResourceUser, ResourceMovie, ResourceGroup, ResourceFriend, ResourceFollowUser, ResourceLike} {
		b.Allow(auth.RoleAdmin, r, all...)
	}

	return b.Build()
}

// policyFile is the YAML schema for a policy override file:
//
//	roles:
//	  user:
//	    movie: [createOwn, readAny, updateOwn, deleteOwn]
type policyFile struct {
	Roles map[string]map[string][]string `yaml:"roles"`
}

// LoadPolicyFile builds a Policy from a YAML file. Unknown roles,
// resources or action names are rejected rather than silently ignored,
// so a typo cannot widen or narrow the table unnoticed.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return parsePolicy(data)
}

func parsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	b := NewPolicyBuilder()
	for roleName, resources := range file.Roles {
		role := auth.Role(roleName)
		if !role.Valid() {
			return nil, fmt.Errorf("policy file: unknown role %q", roleName)
		}
		for resourceName, actionNames := range resources {
			resource := Resource(resourceName)
			if !resource.Valid() {
				return nil, fmt.Errorf("policy file: unknown resource %q", resourceName)
			}
			for _, name := range actionNames {
				action, err := ParseAction(name)
				if err != nil {
					return nil, fmt.Errorf("policy file: role %q resource %q: %w", roleName, resourceName, err)
				}
				b.Allow(role, resource, action)
			}
		}
	}

	return b.Build(), nil
}
