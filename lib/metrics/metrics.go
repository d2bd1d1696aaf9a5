package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_upload_results_total",
		Help: "Outcomes of upload attempts, per method",
	}, []string{"name", "method", "result"})
	MethodSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_method_selections_total",
		Help: "Number of times a method was selected to handle uploads",
	}, []string{"name", "method"})
	ContextFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_context_fallbacks_total",
		Help: "Number of times a method could not share resources with the upload context",
	}, []string{"name", "method"})
	Exhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_exhausted_total",
		Help: "Number of buffers no method could upload",
	}, []string{"name"})
	WrappedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_wrapped_bytes_total",
		Help: "Bytes of host memory wrapped into textures",
	}, []string{"name"})

	FramesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_source_frames_written_total",
		Help: "Total number of frames produced by a source",
	}, []string{"name"})
	FramesRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_source_frames_requested_total",
		Help: "Total number of frames requested from a source",
	}, []string{"name"})
	FramesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_source_frames_read_total",
		Help: "Total number of frames actually handed out by a source",
	}, []string{"name"})
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glupload_source_frames_dropped_total",
		Help: "Total number of frames replaced before anyone read them",
	}, []string{"name"})
)

const (
	ResultDone            = "done"
	ResultRejected        = "rejected"
	ResultError           = "error"
	ResultUnsharedContext = "unshared-context"
	ResultReconfigure     = "reconfigure"
)

type UploadMetrics struct {
	Results      *prometheus.CounterVec
	Selections   *prometheus.CounterVec
	Fallbacks    *prometheus.CounterVec
	Exhausted    prometheus.Counter
	WrappedBytes prometheus.Counter
}

func NewUploadMetrics(name string) UploadMetrics {
	labels := prometheus.Labels{"name": name}
	m := UploadMetrics{
		Results:      UploadResults.MustCurryWith(labels),
		Selections:   MethodSelections.MustCurryWith(labels),
		Fallbacks:    ContextFallbacks.MustCurryWith(labels),
		Exhausted:    Exhausted.WithLabelValues(name),
		WrappedBytes: WrappedBytes.WithLabelValues(name),
	}
	m.Exhausted.Add(0)
	m.WrappedBytes.Add(0)
	return m
}

func (m UploadMetrics) Result(method, result string) {
	m.Results.WithLabelValues(method, result).Inc()
}

type StreamMetrics struct {
	FramesRequested prometheus.Counter
	FramesRead      prometheus.Counter
	FramesWritten   prometheus.Counter
	FramesDropped   prometheus.Counter
}

func NewStreamMetrics(name string) StreamMetrics {
	s := StreamMetrics{
		FramesRequested: FramesRequested.WithLabelValues(name),
		FramesRead:      FramesRead.WithLabelValues(name),
		FramesWritten:   FramesWritten.WithLabelValues(name),
		FramesDropped:   FramesDropped.WithLabelValues(name),
	}
	s.FramesRequested.Add(0)
	s.FramesRead.Add(0)
	s.FramesWritten.Add(0)
	s.FramesDropped.Add(0)
	return s
}

// Handler should usually be mounted at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
