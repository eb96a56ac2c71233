package server

import "time"

// tickInterval 由配置的 TPS 换算；非法值回退到 20 TPS
func (w *World) tickInterval() time.Duration {
	hz := w.cfg.TickRateHz
	if hz <= 0 {
		hz = 20
	}
	return time.Second / time.Duration(hz)
}

// Start 启动 Tick 循环（单协程推进世界）
func (w *World) Start() {
	if w.started {
		return
	}
	w.started = true
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.tickInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.Step()
			case <-w.stop:
				w.shutdown()
				return
			}
		}
	}()
}

// Stop 停止 Tick 循环并关闭所有会话；可重复调用
func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started {
		<-w.done
	}
}

func (w *World) shutdown() {
	for _, id := range w.sessionIDs() {
		w.closeSession(w.sessions[id], "server shutting down")
	}
}
