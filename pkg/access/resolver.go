package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resolver maps a resource instance to the principal id(s) considered
// its owner for access-control purposes.
type Resolver interface {
	// ResolveOwners returns the owner set for the given resource
	// instance. It fails with ErrNotFound when the instance does not
	// exist and ErrInvalidReference when the id is malformed.
	ResolveOwners(ctx context.Context, resource Resource, resourceID string) ([]string, error)
}

// EntityDirectory looks up the owning principal of stored entities.
// Implementations return ErrNotFound for missing instances.
type EntityDirectory interface {
	UserExists(ctx context.Context, id string) (bool, error)
	MovieCreator(ctx context.Context, id string) (string, error)
	GroupCreator(ctx context.Context, id string) (string, error)
}

// EdgeDirectory reports whether a social-graph edge exists between two
// ids for the given resource kind.
type EdgeDirectory interface {
	HasEdge(ctx context.Context, resource Resource, fromID, toID string) (bool, error)
}

const defaultResolveTimeout = 3 * time.Second

// StoreResolver resolves ownership through explicit store fetches.
// Every lookup is bounded by a timeout so a slow store surfaces as a
// denial, never as a hang.
type StoreResolver struct {
	entities EntityDirectory
	edges    EdgeDirectory
	timeout  time.Duration
}

// NewStoreResolver creates a resolver backed by the given directories.
func NewStoreResolver(entities EntityDirectory, edges EdgeDirectory) *StoreResolver {
	return &StoreResolver{
		entities: entities,
		edges:    edges,
		timeout:  defaultResolveTimeout,
	}
}

// WithTimeout overrides the per-lookup timeout.
func (r *StoreResolver) WithTimeout(d time.Duration) *StoreResolver {
	r.timeout = d
	return r
}

// ResolveOwners implements Resolver.
//
// Ownership mapping: a user owns itself; movies and groups are owned by
// their creator; edge resources (friend, followUser, like) are owned by
// both participants, addressed by a composite "fromID:toID" id.
func (r *StoreResolver) ResolveOwners(ctx context.Context, resource Resource, resourceID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	owners, err := r.resolve(ctx, resource, resourceID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("ownership fetch aborted: %w", ErrNotFound)
		}
		return nil, err
	}
	return owners, nil
}

func (r *StoreResolver) resolve(ctx context.Context, resource Resource, resourceID string) ([]string, error) {
	switch resource {
	case ResourceUser:
		if err := validateID(resourceID); err != nil {
			return nil, err
		}
		exists, err := r.entities.UserExists(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return []string{resourceID}, nil

	case ResourceMovie:
		if err := validateID(resourceID); err != nil {
			return nil, err
		}
		creator, err := r.entities.MovieCreator(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		return []string{creator}, nil

	case ResourceGroup:
		if err := validateID(resourceID); err != nil {
			return nil, err
		}
		creator, err := r.entities.GroupCreator(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		return []string{creator}, nil

	case ResourceFriend, ResourceFollowUser, ResourceLike:
		fromID, toID, err := splitEdgeID(resourceID)
		if err != nil {
			return nil, err
		}
		exists, err := r.edges.HasEdge(ctx, resource, fromID, toID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return []string{fromID, toID}, nil
	}

	return nil, fmt.Errorf("%w: unknown resource type %q", ErrInvalidReference, resource)
}

// validateID rejects malformed resource ids before any store fetch.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidReference, id)
	}
	return nil
}

// splitEdgeID parses the composite "fromID:toID" form used to address
// edge resources.
func splitEdgeID(id string) (string, string, error) {
	fromID, toID, ok := strings.Cut(id, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: edge id %q must be \"fromID:toID\"", ErrInvalidReference, id)
	}
	if err := validateID(fromID); err != nil {
		return "", "", err
	}
	if err := validateID(toID); err != nil {
		return "", "", err
	}
	return fromID, toID, nil
}
