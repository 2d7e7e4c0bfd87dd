package api

import (
	"github.com/aeron-go-client/aeron/pkg/lifecycle"
)

// ResourceObserver is the public alias of the resource-linger backlog
// observer, for a host that wants to expose it as its own metric
// without importing pkg/lifecycle directly.
type ResourceObserver = lifecycle.Observer
