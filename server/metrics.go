package server

import (
	"sync/atomic"
)

// Metrics 世界运行期指标
type Metrics struct {
	TickCount           int64 // Tick 次数
	TotalTickNs         int64 // Tick 累计耗时（纳秒）
	ActionsAccepted     int64 // 成功处理的入站消息
	ActionsRejected     int64 // 被拒绝并回送错误的入站消息
	RateLimited         int64 // 超过每 Tick 上限被丢弃
	InboxFullDiscarded  int64 // 因收件箱满被丢弃
	SessionsOpened      int64
	SessionsInvalidated int64
	Transfers           int64 // 完成的填充/倒空
	TransferAnomalies   int64 // 探测与提交不一致
}

func (m *Metrics) IncAccepted()            { atomic.AddInt64(&m.ActionsAccepted, 1) }
func (m *Metrics) IncRejected()            { atomic.AddInt64(&m.ActionsRejected, 1) }
func (m *Metrics) IncRateLimited()         { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncInboxFullDiscarded()  { atomic.AddInt64(&m.InboxFullDiscarded, 1) }
func (m *Metrics) IncSessionsOpened()      { atomic.AddInt64(&m.SessionsOpened, 1) }
func (m *Metrics) IncSessionsInvalidated() { atomic.AddInt64(&m.SessionsInvalidated, 1) }

func (m *Metrics) AddTransfer(anomaly bool) {
	atomic.AddInt64(&m.Transfers, 1)
	if anomaly {
		atomic.AddInt64(&m.TransferAnomalies, 1)
	}
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":           tick,
		"avg_tick_ms":          avgMs,
		"actions_accepted":     atomic.LoadInt64(&m.ActionsAccepted),
		"actions_rejected":     atomic.LoadInt64(&m.ActionsRejected),
		"rate_limited":         atomic.LoadInt64(&m.RateLimited),
		"inbox_full_discarded": atomic.LoadInt64(&m.InboxFullDiscarded),
		"sessions_opened":      atomic.LoadInt64(&m.SessionsOpened),
		"sessions_invalidated": atomic.LoadInt64(&m.SessionsInvalidated),
		"transfers":            atomic.LoadInt64(&m.Transfers),
		"transfer_anomalies":   atomic.LoadInt64(&m.TransferAnomalies),
	}
}
