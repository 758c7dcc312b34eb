// Package resolve decides which of several expected state shapes an
// external system is currently showing.
//
// The observed system is noisy: pages load slowly, elements appear and
// vanish, reads fail transiently. Resolver therefore polls. Each pass waits
// for the accessor's base "loaded" signal, asks every candidate in caller
// order whether it is displayed, and confirms the first hit with a settle
// re-check. Passes repeat until a match is confirmed or the timeout budget
// is spent.
//
// The budget is a single deadline fixed when Resolve starts. Every internal
// wait is clamped to what remains of it, so the worst-case wall time is the
// timeout plus one settle delay plus one check round.
//
// Not finding a shape is not an error here; Resolve reports absence with
// ok=false and callers decide what that means.
package resolve
