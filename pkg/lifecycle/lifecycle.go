// Package lifecycle exposes the resource-linger observability contract a
// caller can use to watch how many closed publications, exclusive
// publications, and subscriptions are still waiting on
// resource_linger_duration_ns to elapse before their log mappings unmap.
package lifecycle

// Observer reports the current lingering-resource backlog. *aeron.Client
// implements it; callers use it for diagnostics or a
// readiness check rather than to control unmap timing directly.
type Observer interface {
	// PendingUnmaps returns how many resources are scheduled for unmap but
	// have not yet reached their deadline.
	PendingUnmaps() int
}
