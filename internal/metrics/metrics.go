package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReadingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "envgate",
		Name:      "readings_ingested_total",
		Help:      "Sensor readings processed successfully, by source.",
	}, []string{"source"})

	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "envgate",
		Name:      "ingest_failures_total",
		Help:      "Rejected or failed ingests, by error kind.",
	}, []string{"kind"})

	Enrichments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "envgate",
		Name:      "enrichment_total",
		Help:      "IP geolocation lookups, by result.",
	}, []string{"result"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
