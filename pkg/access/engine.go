package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/observability"
)

// Engine answers "may principal P perform action A on resource instance
// R?". It combines the role-permission table with the ownership
// resolver; both are injected at construction.
//
// Authorize has no side effects. A denial is returned as a Decision
// with a discriminated reason; the only errors it returns are storage
// faults, which are retryable.
type Engine struct {
	policy   *Policy
	resolver Resolver
	cache    *expirable.LRU[decisionKey, Decision]
	metrics  *observability.Metrics
}

type decisionKey struct {
	principalID string
	role        auth.Role
	base        BaseAction
	resource    Resource
	resourceID  string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDecisionCache enables a TTL-bounded LRU of decisions. Ownership
// may change within the TTL; cached grants are a deliberate staleness
// window, acceptable because ownership rarely changes mid-request.
func WithDecisionCache(size int, ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.cache = expirable.NewLRU[decisionKey, Decision](size, nil, ttl)
	}
}

// WithMetrics wires decision and resolver-lookup counters.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an access decision engine.
func NewEngine(policy *Policy, resolver Resolver, opts ...EngineOption) *Engine {
	e := &Engine{policy: policy, resolver: resolver}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize decides whether principal may perform the base action on
// the given resource instance. resourceID is empty for create actions
// (the instance does not exist yet).
//
// Decision order:
//  1. An any-scoped grant wins immediately, with no ownership fetch.
//  2. Without an own-scoped grant the role is insufficient.
//  3. Creates grant unconditionally on createOwn: the creator becomes
//     the owner after the fact, so there is nothing to resolve.
//  4. Otherwise the principal must be in the resolved owner set.
func (e *Engine) Authorize(ctx context.Context, principal *auth.Principal, base BaseAction, resource Resource, resourceID string) (Decision, error) {
	if principal == nil {
		return e.deny(DenialInsufficientRole), nil
	}

	key := decisionKey{principal.ID, principal.Role, base, resource, resourceID}
	if e.cache != nil {
		if d, ok := e.cache.Get(key); ok {
			// A cached decision is still a decision; the outcome counter
			// must not undercount when the cache is on.
			if e.metrics != nil {
				e.metrics.DecisionCacheHits.Inc()
				e.metrics.ObserveAuthzDecision(d.Granted, string(d.Reason))
			}
			return d, nil
		}
		if e.metrics != nil {
			e.metrics.DecisionCacheMisses.Inc()
		}
	}

	d, err := e.decide(ctx, principal, base, resource, resourceID)
	if err != nil {
		return Decision{}, err
	}

	if e.cache != nil {
		e.cache.Add(key, d)
	}
	if e.metrics != nil {
		e.metrics.ObserveAuthzDecision(d.Granted, string(d.Reason))
	}
	return d, nil
}

func (e *Engine) decide(ctx context.Context, principal *auth.Principal, base BaseAction, resource Resource, resourceID string) (Decision, error) {
	if e.policy.Grant(principal.Role, Action{base, ScopeAny}, resource) == GrantAny {
		return Decision{Granted: true, Level: GrantAny}, nil
	}

	if e.policy.Grant(principal.Role, Action{base, ScopeOwn}, resource) == GrantNone {
		return e.deny(DenialInsufficientRole), nil
	}

	if base == ActionCreate && resourceID == "" {
		return Decision{Granted: true, Level: GrantOwn}, nil
	}
	if resourceID == "" {
		return e.deny(DenialInvalidReference), nil
	}

	if e.metrics != nil {
		e.metrics.OwnershipLookups.Inc()
	}
	owners, err := e.resolver.ResolveOwners(ctx, resource, resourceID)
	switch {
	case errors.Is(err, ErrNotFound):
		return e.deny(DenialNotFound), nil
	case errors.Is(err, ErrInvalidReference):
		return e.deny(DenialInvalidReference), nil
	case err != nil:
		return Decision{}, fmt.Errorf("ownership resolution failed: %w", err)
	}

	for _, owner := range owners {
		if owner == principal.ID {
			return Decision{Granted: true, Level: GrantOwn}, nil
		}
	}
	return e.deny(DenialNotOwner), nil
}

func (e *Engine) deny(reason DenialReason) Decision {
	return Decision{Granted: false, Level: GrantNone, Reason: reason}
}
