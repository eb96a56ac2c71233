package server

import (
	"encoding/json"
	"net/http"
)

// HandleAdminConfig 全局世界的运行期配置
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	GetWorld().HandleAdminConfig(w, r)
}

// HandleMetrics 全局世界的运行指标
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	GetWorld().HandleMetrics(w, r)
}

// adminConfig 指针字段：POST 时只更新出现的字段
type adminConfig struct {
	MaxActionsPerTick *int      `json:"max_actions_per_tick,omitempty"`
	HideableSemantics *[]string `json:"hideable_semantics,omitempty"`
}

// HandleAdminConfig 提供运行期配置的读取与更新
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (wd *World) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		maxActions := wd.MaxActionsPerTick()
		hideable := wd.HideableSemantics()
		writeJSON(w, http.StatusOK, adminConfig{MaxActionsPerTick: &maxActions, HideableSemantics: &hideable})
	case http.MethodPost:
		var body adminConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxActionsPerTick != nil && *body.MaxActionsPerTick <= 0 {
			http.Error(w, "max_actions_per_tick must be positive", http.StatusBadRequest)
			return
		}
		if body.HideableSemantics != nil {
			if err := wd.SetHideableSemantics(*body.HideableSemantics); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if body.MaxActionsPerTick != nil {
			wd.SetMaxActionsPerTick(*body.MaxActionsPerTick)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		Log.Infow("config updated", "max_actions_per_tick", wd.MaxActionsPerTick(), "hideable_semantics", wd.HideableSemantics())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics GET /metrics
func (wd *World) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":     wd.TickSeq(),
		"sessions": wd.SessionCount(),
		"metrics":  wd.metrics.Snapshot(),
		"network":  wd.network.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
