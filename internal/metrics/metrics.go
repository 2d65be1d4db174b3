// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordLoginSuccess(method string)
	RecordLoginFailure(method string)
	RecordRegistration()
	RecordCSRFRejection(reason string)
	RecordOriginRejection()
	RecordResetRequest()
	RecordResetRedemption()
	RecordPromoActivation()
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    *prometheus.CounterVec
	loginFail       *prometheus.CounterVec
	registrations   prometheus.Counter
	csrfRejections  *prometheus.CounterVec
	originRejects   prometheus.Counter
	resetRequests   prometheus.Counter
	resetRedeemed   prometheus.Counter
	promoActivated  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adlab_login_success_total",
			Help: "ログイン成功の合計数（認証方式別）",
		}, []string{"method"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adlab_login_fail_total",
			Help: "ログイン失敗の合計数（認証方式別）",
		}, []string{"method"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adlab_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		csrfRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adlab_csrf_rejections_total",
			Help: "CSRF検証で拒否したリクエストの合計数（理由別）",
		}, []string{"reason"}),
		originRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adlab_origin_rejections_total",
			Help: "Origin検証で拒否したリクエストの合計数",
		}),
		resetRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adlab_reset_requests_total",
			Help: "パスワード再設定リクエストの合計数",
		}),
		resetRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adlab_reset_redemptions_total",
			Help: "パスワード再設定コード引き換えの合計数",
		}),
		promoActivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adlab_promo_activations_total",
			Help: "プロモーションコード引き換えの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adlab_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adlab_request_duration_seconds",
			Help:    "リクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.registrations,
		c.csrfRejections,
		c.originRejects,
		c.resetRequests,
		c.resetRedeemed,
		c.promoActivated,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。methodは"local"または"google"。
func (c *Collector) RecordLoginSuccess(method string) {
	c.loginSuccess.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(method string) {
	c.loginFail.WithLabelValues(method).Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordCSRFRejection はCSRF検証による拒否を記録する。
func (c *Collector) RecordCSRFRejection(reason string) {
	c.csrfRejections.WithLabelValues(reason).Inc()
}

// RecordOriginRejection はOrigin検証による拒否を記録する。
func (c *Collector) RecordOriginRejection() {
	c.originRejects.Inc()
}

// RecordResetRequest はパスワード再設定リクエストを記録する。
func (c *Collector) RecordResetRequest() {
	c.resetRequests.Inc()
}

// RecordResetRedemption は再設定コードの引き換えを記録する。
func (c *Collector) RecordResetRedemption() {
	c.resetRedeemed.Inc()
}

// RecordPromoActivation はプロモーションコードの引き換えを記録する。
func (c *Collector) RecordPromoActivation() {
	c.promoActivated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
