package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssignmentsTotal tracks assign attempts by outcome
	AssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_assignments_total",
		Help: "Total number of key assignment attempts",
	}, []string{"result"})

	// ReturnsTotal tracks return attempts by outcome
	ReturnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_returns_total",
		Help: "Total number of key return attempts",
	}, []string{"result"})

	// RequestsTotal tracks HTTP requests served by the management API
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "status"})

	// CacheOperations tracks registry cache hits and misses
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_cache_operations_total",
		Help: "Total number of registry cache hits and misses",
	}, []string{"result"})

	// DBConnectionsActive tracks open database connections
	DBConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "keyward_db_connections_active",
		Help: "Number of active database connections",
	})
)

// Result label values shared by the counters above.
const (
	ResultOK              = "ok"
	ResultAlreadyAssigned = "already_assigned"
	ResultKeyNotFound     = "key_not_found"
	ResultInvalidUser     = "invalid_user"
	ResultNoOpen          = "no_open_assignment"
	ResultError           = "error"
	ResultHit             = "hit"
	ResultMiss            = "miss"
)
