// Package metrics 审核流程指标（Prometheus，私有 Registry，通过 /metrics 暴露）
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 指标记录器；nil 接收者上的调用均为空操作
type Recorder struct {
	reg *prometheus.Registry

	decisions *prometheus.CounterVec   // verifier_decisions_total
	skips     *prometheus.CounterVec   // verifier_skips_total
	fetches   *prometheus.CounterVec   // verifier_fetch_total
	relogins  *prometheus.CounterVec   // verifier_relogin_total
	upstream  *prometheus.HistogramVec // verifier_upstream_seconds
}

// New 创建记录器并注册全部指标
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_decisions_total",
			Help: "Decision submissions partitioned by decision and outcome.",
		}, []string{"decision", "outcome"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_skips_total",
			Help: "Queue skips partitioned by reason.",
		}, []string{"reason"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_fetch_total",
			Help: "Case fetches partitioned by outcome.",
		}, []string{"outcome"}),
		relogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_relogin_total",
			Help: "Portal re-login attempts partitioned by result.",
		}, []string{"result"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verifier_upstream_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
	}
	reg.MustRegister(
		r.decisions, r.skips, r.fetches, r.relogins, r.upstream,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Decision 记录一次决定提交
func (r *Recorder) Decision(decision, outcome string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(decision, outcome).Inc()
}

// Skip 记录一次跳过
func (r *Recorder) Skip(reason string) {
	if r == nil {
		return
	}
	r.skips.WithLabelValues(reason).Inc()
}

// Fetch 记录一次案件获取
func (r *Recorder) Fetch(outcome string) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(outcome).Inc()
}

// Relogin 记录一次重新登录
func (r *Recorder) Relogin(result string) {
	if r == nil {
		return
	}
	r.relogins.WithLabelValues(result).Inc()
}

// ObserveUpstream 记录上游调用耗时，通常以 defer 方式使用
func (r *Recorder) ObserveUpstream(target string, start time.Time) {
	if r == nil {
		return
	}
	r.upstream.WithLabelValues(target).Observe(time.Since(start).Seconds())
}

// Registry 返回私有 Registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler 返回 /metrics 处理器
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
