package redisx

import "time"

const (
	// Cached stage: order_stage:{order_id} -> {"stage": "...", "label": "...", "updated_at": "..."}
	KeyOrderStage = "order_stage:%s"

	// Dedup of inbound webhook deliveries: dedup:{source}:{message_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStageCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
