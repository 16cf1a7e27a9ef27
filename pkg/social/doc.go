// Package social implements the relationship edge store and the
// counter consistency machinery over it.
//
// Edges (memberships, friendships, follows, join requests, likes) are
// the source of truth; the denormalized counters on users, groups and
// movies are a derived view maintained incrementally, with every edge
// mutation and its counter deltas applied as one atomic unit.
package social
