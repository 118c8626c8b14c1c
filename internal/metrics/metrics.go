package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 편집기 동기화 서버 지표
// nil receiver로 호출해도 안전하다 (지표 비활성화).
type Metrics struct {
	liveConnections   prometheus.Gauge
	events            *prometheus.CounterVec
	broadcastFailures prometheus.Counter
	malformedFrames   prometheus.Counter
}

// New 지표 생성 및 reg에 등록
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_live_connections",
			Help: "Number of live editor sessions.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_events_total",
			Help: "Inbound events by type.",
		}, []string{"event"}),
		broadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_broadcast_failures_total",
			Help: "Sends that failed and dropped the peer.",
		}),
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_frames_malformed_total",
			Help: "Inbound frames that were not UTF-8 JSON.",
		}),
	}
	reg.MustRegister(m.liveConnections, m.events, m.broadcastFailures, m.malformedFrames)
	return m
}

// SessionOpened 연결 수 증가 (hub.Observer)
func (m *Metrics) SessionOpened(string) {
	if m == nil {
		return
	}
	m.liveConnections.Inc()
}

// SessionClosed 연결 수 감소 (hub.Observer)
func (m *Metrics) SessionClosed(string) {
	if m == nil {
		return
	}
	m.liveConnections.Dec()
}

// ObserveEvent 수신 이벤트 1건 기록
func (m *Metrics) ObserveEvent(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

// BroadcastFailed 전송 실패 1건 기록
func (m *Metrics) BroadcastFailed() {
	if m == nil {
		return
	}
	m.broadcastFailures.Inc()
}

// MalformedFrame 잘못된 프레임 1건 기록
func (m *Metrics) MalformedFrame() {
	if m == nil {
		return
	}
	m.malformedFrames.Inc()
}
