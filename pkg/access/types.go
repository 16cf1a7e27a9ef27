package access

import "errors"

// Resource represents a resource type in the system
type Resource string

const (
	ResourceUser       Resource = "user"
	ResourceMovie      Resource = "movie"
	ResourceGroup      Resource = "group"
	ResourceFriend     Resource = "friend"
	ResourceFollowUser Resource = "followUser"
	ResourceLike       Resource = "like"
)

// Valid reports whether r is a known resource type.
func (r Resource) Valid() bool {
	switch r {
	case ResourceUser, ResourceMovie, ResourceGroup, ResourceFriend, ResourceFollowUser, ResourceLike:
		return true
	}
	return false
}

// BaseAction represents the verb of an action, independent of scope.
type BaseAction string

const (
	ActionCreate BaseAction = "create"
	ActionRead   BaseAction = "read"
	ActionUpdate BaseAction = "update"
	ActionDelete BaseAction = "delete"
)

// ActionScope represents whether an action targets the principal's own
// resources or anyone's.
type ActionScope string

const (
	ScopeOwn ActionScope = "own"
	ScopeAny ActionScope = "any"
)

// Action is a typed (verb, scope) pair. Actions are never built by
// string concatenation; ParseAction is the only string entry point and
// rejects anything outside the closed vocabulary.
type Action struct {
	Base  BaseAction  `json:"base"`
	Scope ActionScope `json:"scope"`
}

// String returns the camel-cased wire form, e.g. "readOwn".
func (a Action) String() string {
	switch a.Scope {
	case ScopeOwn:
		return string(a.Base) + "Own"
	case ScopeAny:
		return string(a.Base) + "Any"
	}
	return string(a.Base)
}

// The closed action vocabulary.
var (
	CreateOwn = Action{ActionCreate, ScopeOwn}
	CreateAny = Action{ActionCreate, ScopeAny}
	ReadOwn   = Action{ActionRead, ScopeOwn}
	ReadAny   = Action{ActionRead, ScopeAny}
	UpdateOwn = Action{ActionUpdate, ScopeOwn}
	UpdateAny = Action{ActionUpdate, ScopeAny}
	DeleteOwn = Action{ActionDelete, ScopeOwn}
	DeleteAny = Action{ActionDelete, ScopeAny}
)

var actionsByName = map[string]Action{
	"createOwn": CreateOwn,
	"createAny": CreateAny,
	"readOwn":   ReadOwn,
	"readAny":   ReadAny,
	"updateOwn": UpdateOwn,
	"updateAny": UpdateAny,
	"deleteOwn": DeleteOwn,
	"deleteAny": DeleteAny,
}

// ParseAction resolves an action name like "readOwn" against the closed
// vocabulary.
func ParseAction(name string) (Action, error) {
	a, ok := actionsByName[name]
	if !ok {
		return Action{}, errors.New("unknown action: " + name)
	}
	return a, nil
}

// GrantLevel is the permission level a role holds for an action on a
// resource type. The order GrantNone < GrantOwn < GrantAny supports
// escalation reasoning.
type GrantLevel int

const (
	GrantNone GrantLevel = iota
	GrantOwn
	GrantAny
)

func (g GrantLevel) String() string {
	switch g {
	case GrantOwn:
		return "own"
	case GrantAny:
		return "any"
	}
	return "none"
}

// DenialReason is the discriminated reason an access decision was
// denied. Denial is a normal branch of control flow, never an error.
type DenialReason string

const (
	DenialNone             DenialReason = ""
	DenialInsufficientRole DenialReason = "insufficient_role"
	DenialNotOwner         DenialReason = "not_owner"
	DenialNotFound         DenialReason = "not_found"
	DenialInvalidReference DenialReason = "invalid_reference"
)

// Decision is the result of an access check.
type Decision struct {
	Granted bool         `json:"granted"`
	Level   GrantLevel   `json:"level"`
	Reason  DenialReason `json:"reason,omitempty"`
}

// Resolver-level sentinel errors. The engine translates these into
// denials; they never escape to callers of Authorize.
var (
	// ErrNotFound means the resource instance does not exist, so it
	// can have no owners.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidReference means the resource id is malformed.
	ErrInvalidReference = errors.New("invalid resource reference")
)
