package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks implements LayoutHooks and SceneHooks on Prometheus
// collectors.
type PrometheusHooks struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	updates       prometheus.Counter
	changed       *prometheus.CounterVec
	resizes       prometheus.Counter
	windowSize    *prometheus.GaugeVec
	rejected      *prometheus.CounterVec
	sceneLoads    *prometheus.CounterVec
	sceneEntities prometheus.Gauge
}

// NewPrometheusHooks creates the framekit collectors and registers them
// with reg. It panics if a collector is already registered.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framekit_layout_ticks_total",
			Help: "Total number of layout ticks",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "framekit_layout_tick_duration_seconds",
			Help:    "Wall time of layout ticks",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framekit_layout_constraint_updates_total",
			Help: "Constraint add/remove operations sent to the solver",
		}),
		changed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framekit_layout_changes_total",
			Help: "Solver variables and positions changed by ticks",
		}, []string{"kind"}),
		resizes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framekit_layout_resizes_total",
			Help: "Screen dimension events applied",
		}),
		windowSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "framekit_layout_window_size",
			Help: "Current window size",
		}, []string{"axis"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framekit_layout_constraints_rejected_total",
			Help: "Constraint updates rejected by the solver",
		}, []string{"code"}),
		sceneLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framekit_scene_loads_total",
			Help: "Scene documents loaded",
		}, []string{"format", "result"}),
		sceneEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framekit_scene_entities",
			Help: "Entities in the most recently loaded scene",
		}),
	}
	reg.MustRegister(
		h.ticks, h.tickDuration, h.updates, h.changed, h.resizes,
		h.windowSize, h.rejected, h.sceneLoads, h.sceneEntities,
	)
	return h
}

func (h *PrometheusHooks) OnTick(info TickInfo) {
	h.ticks.Inc()
	h.tickDuration.Observe(info.Duration.Seconds())
	h.updates.Add(float64(info.Updates))
	h.changed.WithLabelValues("variable").Add(float64(info.ChangedVariables))
	h.changed.WithLabelValues("position").Add(float64(info.ChangedPositions))
}

func (h *PrometheusHooks) OnResize(width, height uint32) {
	h.resizes.Inc()
	h.windowSize.WithLabelValues("width").Set(float64(width))
	h.windowSize.WithLabelValues("height").Set(float64(height))
}

func (h *PrometheusHooks) OnConstraintRejected(code string) {
	h.rejected.WithLabelValues(code).Inc()
}

func (h *PrometheusHooks) OnSceneLoad(format string, entities int, _ time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.sceneLoads.WithLabelValues(format, result).Inc()
	if err == nil {
		h.sceneEntities.Set(float64(entities))
	}
}
