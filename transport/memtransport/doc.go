// Package memtransport implements the transport capability surface inside a
// single process. Channels created through one [System] are shared by every
// node created through it, so independent "processes" are modelled as
// independent nodes.
//
// The implementation backs the test suite of the coordination core and
// in-process simulations. It supports fault injection: [System.MarkDead]
// flags a node's registry entry as dead without releasing its resources,
// which makes its channels unusable until a stale-resource sweep reclaims
// them, the same shape a crashed process leaves behind in a real
// shared-memory domain.
package memtransport
