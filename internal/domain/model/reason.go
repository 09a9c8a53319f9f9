package model

// Reason 机器可识别的原因码，所有跳过或拒绝的决策都必须携带
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonBelowThreshold   Reason = "below_threshold"
	ReasonNoSignal         Reason = "no_signal"
	ReasonCooldown         Reason = "cooldown"
	ReasonDailyCap         Reason = "daily_cap"
	ReasonTooSmall         Reason = "too_small"
	ReasonNoStopDistance   Reason = "no_stop_distance"
	ReasonHeatLimit        Reason = "heat_limit"
	ReasonPriceUnavailable Reason = "price_unavailable"
	ReasonExecutionFailed  Reason = "execution_failed"
	ReasonNoPosition       Reason = "no_position"
	ReasonPositionOpen     Reason = "position_open"
	ReasonDryRun           Reason = "dry_run"
	ReasonTakeProfit       Reason = "tp"
	ReasonStopLoss         Reason = "sl"
	ReasonTrailingStop     Reason = "trail"
)
