package model

// Action is a human-friendly operating mode of the store for a snapshot.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromStorePower maps store power to an Action.
// Store power follows the optimizer's polarity: positive = discharge into the bus.
func ActionFromStorePower(powerMW float64) Action {
	switch {
	case powerMW < 0:
		return ActionCharging
	case powerMW > 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
