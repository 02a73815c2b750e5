// Package shmfs implements the transport capability surface across OS
// processes using a shared tmpfs directory ("/dev/shm" where present).
//
// # Layout
//
//	<root>/nodes/<id>/          one directory per registered node
//	    name                    the node's given name
//	    lock                    flock held exclusively while the node lives
//	<root>/channels/<name>/
//	    meta.json               channel shape, written once atomically
//	    sub.lock                flock-enforced subscriber slot
//	    data/                   one file per in-flight payload
//	    events/                 one file per fired signal
//
// # Liveness and cleanup
//
// Liveness is kernel file locking: a node's lock is held for as long as the
// owning process holds the descriptor, so a crash releases it without any
// cleanup code running. The registry reports a node dead when its lock can
// be grabbed; Reclaim then removes the directory. The subscriber slot works
// the same way, which means a crashed receiver frees the slot immediately.
//
// # Delivery
//
// Payloads and signals are files written to a temporary name and renamed
// into place, so readers never observe partial writes. A listener scans the
// events directory first and then waits on an fsnotify watcher with a
// deadline, giving timed waits without polling. Signal files already on
// disk when a listener is created are consumed and discarded at creation,
// so a listener never observes signals that predate it.
package shmfs
