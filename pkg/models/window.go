package models

import (
	"fmt"
	"time"
)

// TimeWindow is the evidence lookback window for one investigation.
// Expression keeps the human form ("1h", "30m", "2h30m") used to build it.
type TimeWindow struct {
	Expression string    `json:"expression"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Duration returns the span of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// AnchorWindow builds a TimeWindow from a duration expression, anchored to
// the alert start when it is usable and to now otherwise.
func AnchorWindow(expr string, alertStart time.Time, now time.Time) (TimeWindow, error) {
	d, err := time.ParseDuration(expr)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("invalid time window %q: %w", expr, err)
	}
	if d <= 0 {
		return TimeWindow{}, fmt.Errorf("invalid time window %q: duration must be positive", expr)
	}
	end := now
	if !alertStart.IsZero() {
		end = alertStart
	}
	return TimeWindow{
		Expression: expr,
		Start:      end.Add(-d),
		End:        end,
	}, nil
}
