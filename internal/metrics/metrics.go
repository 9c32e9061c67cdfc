package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/John-Robertt/discogs-digest/internal/fetch"
)

// Collector 收集一次运行的计数，运行结束后写成 node_exporter textfile。
// 每个 Collector 使用独立 Registry（一次性批处理任务，不暴露 HTTP 端点）。
type Collector struct {
	reg *prometheus.Registry

	pages    *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	releases *prometheus.CounterVec
	duration prometheus.Gauge
	lastOK   prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discogs_digest_pages_total",
			Help: "Pages requested, by cache result.",
		}, []string{"cache"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discogs_digest_page_bytes_total",
			Help: "Raw page bytes returned, by cache result.",
		}, []string{"cache"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discogs_digest_releases_total",
			Help: "Releases processed, by status.",
		}, []string{"status"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discogs_digest_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discogs_digest_last_run_success",
			Help: "1 if the last run wrote a digest, 0 otherwise.",
		}),
	}
	c.reg.MustRegister(c.pages, c.bytes, c.releases, c.duration, c.lastOK)
	return c
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// ObserveFetch 记录一次页面抓取（可直接挂到 fetch.Fetcher.OnFetch）。
func (c *Collector) ObserveFetch(ev fetch.Event) {
	l := cacheLabel(ev.Hit)
	c.pages.WithLabelValues(l).Inc()
	c.bytes.WithLabelValues(l).Add(float64(ev.Bytes))
}

func (c *Collector) ObserveRelease(ok bool) {
	if ok {
		c.releases.WithLabelValues("ok").Inc()
		return
	}
	c.releases.WithLabelValues("failed").Inc()
}

func (c *Collector) ObserveRun(seconds float64, ok bool) {
	c.duration.Set(seconds)
	if ok {
		c.lastOK.Set(1)
	} else {
		c.lastOK.Set(0)
	}
}

// WriteTextfile 以 textfile collector 格式写出（内部先写临时文件再 rename）。
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}
