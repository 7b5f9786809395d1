package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    cacheOps = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pageforge",
            Name:      "cache_operations_total",
            Help:      "Thumbnail cache operations by tier and result (hit, miss, evict, invalidate)",
        },
        []string{"tier", "result"},
    )

    rendersTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pageforge",
            Name:      "thumbnail_renders_total",
            Help:      "Thumbnail renders by result",
        },
        []string{"result"},
    )

    renderLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "pageforge",
            Name:      "thumbnail_render_duration_seconds",
            Help:      "Duration of thumbnail renders",
            Buckets:   prometheus.DefBuckets,
        },
    )

    assembliesTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pageforge",
            Name:      "assemblies_total",
            Help:      "Document assemblies by kind and result (arrangement, split, merge)",
        },
        []string{"kind", "result"},
    )

    assemblyLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "pageforge",
            Name:      "assembly_duration_seconds",
            Help:      "Duration of document assemblies by kind",
            Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
        },
        []string{"kind"},
    )

    activeSessions = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pageforge",
            Name:      "active_sessions",
            Help:      "Currently open editing sessions",
        },
    )

    undoDepth = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pageforge",
            Name:      "max_undo_depth",
            Help:      "Configured undo stack depth cap",
        },
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(cacheOps, rendersTotal, renderLatency, assembliesTotal, assemblyLatency, activeSessions, undoDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func CacheHit(tier string)        { cacheOps.WithLabelValues(tier, "hit").Inc() }
func CacheMiss(tier string)       { cacheOps.WithLabelValues(tier, "miss").Inc() }
func CacheEvict(tier string)      { cacheOps.WithLabelValues(tier, "evict").Inc() }
func CacheInvalidate(tier string) { cacheOps.WithLabelValues(tier, "invalidate").Inc() }

func ObserveRender(result string, dur time.Duration) {
    rendersTotal.WithLabelValues(result).Inc()
    renderLatency.Observe(dur.Seconds())
}

func ObserveAssembly(kind, result string, dur time.Duration) {
    assembliesTotal.WithLabelValues(kind, result).Inc()
    assemblyLatency.WithLabelValues(kind).Observe(dur.Seconds())
}

func SessionOpened() { activeSessions.Inc() }
func SessionClosed() { activeSessions.Dec() }

func SetUndoDepth(n int) { undoDepth.Set(float64(n)) }
