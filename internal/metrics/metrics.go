package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nemi"

// Metrics 业务与 HTTP 指标，全部注册到传入的 Registerer
type Metrics struct {
	VotesCast           *prometheus.CounterVec
	DecisionTransitions *prometheus.CounterVec
	OutboxDelivered     *prometheus.CounterVec
	TallyCache          *prometheus.CounterVec
	HTTPRequests        *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "number of accepted votes",
		}, []string{"method", "replaced"}),
		DecisionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_transitions_total",
			Help:      "number of decision status transitions",
		}, []string{"to", "source"}),
		OutboxDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_delivered_total",
			Help:      "number of outbox rows processed",
		}, []string{"result"}),
		TallyCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tally_cache_total",
			Help:      "tally cache lookups",
		}, []string{"result"}),
		HTTPRequests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "http request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Noop 测试或不需要暴露指标时使用
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) ObserveVote(method string, replaced bool) {
	m.VotesCast.WithLabelValues(method, strconv.FormatBool(replaced)).Inc()
}

func (m *Metrics) ObserveTransition(to, source string) {
	m.DecisionTransitions.WithLabelValues(to, source).Inc()
}

func (m *Metrics) ObserveOutbox(ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.OutboxDelivered.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTallyCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TallyCache.WithLabelValues(result).Inc()
}

// GinMiddleware 按路由模板记录请求耗时，未匹配的路由统一记为 unmatched
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
