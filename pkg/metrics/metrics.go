package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 冲突被拦截的阶段
const (
	StagePrecheck = "precheck" // 冲突预检
	StageStorage  = "storage"  // 数据库唯一约束
)

// Recorder 业务指标记录接口，Service 与中间件只依赖该接口
type Recorder interface {
	ClashChecked(clash bool)
	ClashRejected(stage, resource string)
	ConstraintViolated(constraintType string)
	ExceptionsPurged(n int64)
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Nop 不记录任何指标（单元测试或关闭指标时使用）
type Nop struct{}

func (Nop) ClashChecked(bool) {}
func (Nop) ClashRejected(string, string) {}
func (Nop) ConstraintViolated(string) {}
func (Nop) ExceptionsPurged(int64) {}
func (Nop) HTTPRequest(string, string, int, time.Duration) {}

// Prom 基于 Prometheus 的指标实现
type Prom struct {
	clashChecks      *prometheus.CounterVec
	clashRejections  *prometheus.CounterVec
	violations       *prometheus.CounterVec
	exceptionsPurged prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewProm 在 reg 上注册指标；reg 为 nil 时使用默认注册器。
// 重复注册时复用已存在的采集器。
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prom{
		clashChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_clash_checks_total",
			Help: "Number of clash checks by outcome",
		}, []string{"outcome"}),
		clashRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_clash_rejections_total",
			Help: "Number of writes rejected as clashes by stage and resource",
		}, []string{"stage", "resource"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_constraint_violations_total",
			Help: "Number of soft constraint violations reported as warnings",
		}, []string{"constraint_type"}),
		exceptionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_exceptions_purged_total",
			Help: "Number of exceptions removed by the retention job",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	var err error
	if p.clashChecks, err = register(reg, p.clashChecks); err != nil {
		return nil, err
	}
	if p.clashRejections, err = register(reg, p.clashRejections); err != nil {
		return nil, err
	}
	if p.violations, err = register(reg, p.violations); err != nil {
		return nil, err
	}
	if p.exceptionsPurged, err = register(reg, p.exceptionsPurged); err != nil {
		return nil, err
	}
	if p.httpRequests, err = register(reg, p.httpRequests); err != nil {
		return nil, err
	}
	if p.httpLatency, err = register(reg, p.httpLatency); err != nil {
		return nil, err
	}
	return p, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (p *Prom) ClashChecked(clash bool) {
	outcome := "clear"
	if clash {
		outcome = "clash"
	}
	p.clashChecks.WithLabelValues(outcome).Inc()
}

func (p *Prom) ClashRejected(stage, resource string) {
	p.clashRejections.WithLabelValues(stage, resource).Inc()
}

func (p *Prom) ConstraintViolated(constraintType string) {
	p.violations.WithLabelValues(constraintType).Inc()
}

func (p *Prom) ExceptionsPurged(n int64) {
	p.exceptionsPurged.Add(float64(n))
}

func (p *Prom) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler 暴露 /metrics；g 为 nil 时使用默认采集器
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
