// Package access implements the access decision engine: a static
// role-permission table, an ownership resolver backed by explicit store
// fetches, and the engine that combines them into per-request grant or
// deny decisions with discriminated denial reasons.
package access
