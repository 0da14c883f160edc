// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordTokenRefresh(result string)
	ObserveTokenRefreshDuration(seconds float64)
	RecordHTTPStatus(statusCode int)
	RecordSessionsCleaned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginTotal          *prometheus.CounterVec
	tokenRefreshTotal   *prometheus.CounterVec
	tokenRefreshLatency prometheus.Histogram
	httpStatus          *prometheus.CounterVec
	sessionsCleaned     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		tokenRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_token_refresh_total",
			Help: "トークンリフレッシュの結果別合計数",
		}, []string{"result"}),
		tokenRefreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ignitecall_token_refresh_latency_seconds",
			Help:    "トークンリフレッシュ交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ignitecall_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.loginTotal,
		c.tokenRefreshTotal,
		c.tokenRefreshLatency,
		c.httpStatus,
		c.sessionsCleaned,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.loginTotal.WithLabelValues(result).Inc()
}

// RecordTokenRefresh はトークンリフレッシュの結果を記録する。
func (c *Collector) RecordTokenRefresh(result string) {
	c.tokenRefreshTotal.WithLabelValues(result).Inc()
}

// ObserveTokenRefreshDuration はリフレッシュ交換のレイテンシを記録する。
func (c *Collector) ObserveTokenRefreshDuration(seconds float64) {
	c.tokenRefreshLatency.Observe(seconds)
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsCleaned はクリーンアップで削除されたセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
