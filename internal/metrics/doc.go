// Package metrics records crawl counters in a Prometheus registry.
//
// tenderscan is a batch job, so metrics are not served over HTTP. Instead
// the fetch command writes the registry to a node_exporter textfile
// (--metrics-file) when the run ends.
package metrics
