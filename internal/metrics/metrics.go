// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/mrhud/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// レンダーパスの調整役とGitLabクライアントから利用する。
type MetricsCollector interface {
	RecordPass(duration time.Duration, itemCount int)
	RecordMalformedRow()
	RecordEnrichment(state model.RemoteState)
	RecordRemoteStatus(endpoint string, statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	passTotal     prometheus.Counter
	passLatency   prometheus.Histogram
	rowsTotal     prometheus.Counter
	malformedRows prometheus.Counter
	enrichment    *prometheus.CounterVec
	remoteStatus  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		passTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrhud_render_pass_total",
			Help: "実行されたレンダーパスの合計数",
		}),
		passLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mrhud_render_pass_latency_seconds",
			Help:    "レンダーパスのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		rowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrhud_rows_classified_total",
			Help: "分類された行の合計数",
		}),
		malformedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrhud_rows_malformed_total",
			Help: "必須マーカー欠落によりスキップされた行の合計数",
		}),
		enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrhud_enrichment_total",
			Help: "行エンリッチメントの結果別の合計数",
		}, []string{"result"}),
		remoteStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrhud_gitlab_request_total",
			Help: "GitLab APIリクエストのエンドポイント・ステータスコード別の合計数",
		}, []string{"endpoint", "status_code"}),
	}

	reg.MustRegister(
		c.passTotal,
		c.passLatency,
		c.rowsTotal,
		c.malformedRows,
		c.enrichment,
		c.remoteStatus,
	)

	return c
}

// RecordPass はレンダーパスの完了を記録する。
func (c *Collector) RecordPass(duration time.Duration, itemCount int) {
	c.passTotal.Inc()
	c.passLatency.Observe(duration.Seconds())
	c.rowsTotal.Add(float64(itemCount))
}

// RecordMalformedRow はスキップされた不正な行を記録する。
func (c *Collector) RecordMalformedRow() {
	c.malformedRows.Inc()
}

// RecordEnrichment は行エンリッチメントの結果を記録する。
func (c *Collector) RecordEnrichment(state model.RemoteState) {
	c.enrichment.WithLabelValues(string(state)).Inc()
}

// RecordRemoteStatus はGitLab API呼び出しのHTTPステータスを記録する。
func (c *Collector) RecordRemoteStatus(endpoint string, statusCode int) {
	c.remoteStatus.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
