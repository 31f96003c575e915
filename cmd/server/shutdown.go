package main

import "github.com/unclebandit/prdesk-backend/internal/queue"

// drain runs after the HTTP server has shut down. It waits for the
// scheduler to stop, then for in-flight in-memory deliveries, so nothing
// touches the database after main returns. mem is nil when a broker is used.
func drain(scheduler <-chan struct{}, mem *queue.InMemoryQueue) {
	<-scheduler
	if mem != nil {
		mem.Wait()
	}
}
