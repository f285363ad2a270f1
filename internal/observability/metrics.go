package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	Enabled bool
	Addr    string
	Path    string
	Build   BuildInfo
}

// Provider owns the process's Prometheus registry plus the catalog-domain
// collectors every package in odpcore registers into.
type Provider struct {
	reg       *prometheus.Registry
	buildInfo *prometheus.GaugeVec

	OpensearchRequests  *prometheus.CounterVec
	OpensearchPageDelay prometheus.Histogram
	FetcherRetries      *prometheus.CounterVec
	FetcherLatency      *prometheus.HistogramVec
	FeatureListSize     *prometheus.GaugeVec
	OpendapCacheHits    *prometheus.CounterVec
	SchemaProbes        *prometheus.CounterVec
	ChunkBytesServed    prometheus.Counter
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odpcore_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "branch", "build_date"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.Branch, v.BuildDate).Set(1)

	p := &Provider{
		reg:       reg,
		buildInfo: build,
		OpensearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odpcore_opensearch_requests_total",
			Help: "OpenSearch requests issued, by outcome.",
		}, []string{"outcome"}),
		OpensearchPageDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "odpcore_opensearch_page_seconds",
			Help: "Latency of a single OpenSearch page fetch.",
		}),
		FetcherRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odpcore_fetcher_retries_total",
			Help: "HTTP fetch retries, by reason.",
		}, []string{"reason"}),
		FetcherLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "odpcore_fetcher_latency_seconds",
			Help: "Outbound HTTP fetch latency.",
		}, []string{"status_class"}),
		FeatureListSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "odpcore_feature_list_size",
			Help: "Number of features cached per DRS id.",
		}, []string{"drs_id"}),
		OpendapCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odpcore_opendap_cache_total",
			Help: "OPeNDAP dataset-handle memoization lookups, by outcome.",
		}, []string{"outcome"}),
		SchemaProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odpcore_schema_probes_total",
			Help: "Schema probe attempts, by outcome.",
		}, []string{"outcome"}),
		ChunkBytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odpcore_chunk_bytes_served_total",
			Help: "Total bytes served out of resolved chunks.",
		}),
	}

	reg.MustRegister(
		p.OpensearchRequests, p.OpensearchPageDelay, p.FetcherRetries,
		p.FetcherLatency, p.FeatureListSize, p.OpendapCacheHits,
		p.SchemaProbes, p.ChunkBytesServed,
	)

	return p
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
