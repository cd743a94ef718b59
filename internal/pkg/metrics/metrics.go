// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blockfox"

var (
	RPCProbes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_probes_total",
		Help:      "RPC network id probes by outcome.",
	}, []string{"outcome"})

	BillingCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "billing_calls_total",
		Help:      "Billing provider calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	SyncJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_jobs_total",
		Help:      "Processed sync jobs by action and outcome.",
	}, []string{"action", "outcome"})

	HTTPErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_errors_total",
		Help:      "API error responses by error kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(RPCProbes, BillingCalls, SyncJobs, HTTPErrors)
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
