package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	documentsSubmittedTotal atomic.Uint64
	processingStartedTotal  atomic.Uint64
	processingDoneTotal     atomic.Uint64
	processingFailedTotal   atomic.Uint64
	decisionsIssuedTotal    atomic.Uint64

	processingDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncDocumentsSubmitted increments the submitted-documents counter.
func IncDocumentsSubmitted() {
	documentsSubmittedTotal.Add(1)
}

// IncProcessingStarted increments the started counter.
func IncProcessingStarted() {
	processingStartedTotal.Add(1)
}

// IncProcessingDone increments the processed counter.
func IncProcessingDone() {
	processingDoneTotal.Add(1)
}

// IncProcessingFailed increments the failed counter.
func IncProcessingFailed() {
	processingFailedTotal.Add(1)
}

// IncDecisionsIssued increments the decisions counter.
func IncDecisionsIssued() {
	decisionsIssuedTotal.Add(1)
}

// ObserveProcessingDurationMs records a document processing duration in milliseconds.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_submitted_total", "Total documents moved to submitted", documentsSubmittedTotal.Load())
	writeCounter(&buf, "document_processing_started_total", "Total document processing jobs started", processingStartedTotal.Load())
	writeCounter(&buf, "document_processing_done_total", "Total document processing jobs completed", processingDoneTotal.Load())
	writeCounter(&buf, "document_processing_failed_total", "Total document processing jobs failed", processingFailedTotal.Load())
	writeCounter(&buf, "decisions_issued_total", "Total eligibility decisions issued", decisionsIssuedTotal.Load())
	writeHistogram(&buf, "document_processing_duration_ms", "Document processing duration in milliseconds", processingDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
