// Package cpu pins worker goroutines to CPU cores.
package cpu

import "runtime"

// Core maps a worker id onto a logical CPU index.
func Core(workerID int) int {
	n := runtime.NumCPU()
	return ((workerID % n) + n) % n
}

// Pin locks the calling goroutine to its OS thread and, where the platform
// supports it, restricts that thread to the core chosen for workerID.
// The returned release func must be called from the same goroutine.
// A non-nil error means the thread is locked but not pinned.
func Pin(workerID int) (release func(), err error) {
	runtime.LockOSThread()
	release = runtime.UnlockOSThread

	return release, setAffinity(Core(workerID))
}
