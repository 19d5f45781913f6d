package monitoring

import "time"

// ConditionKind enumerates the alert-rule comparison operators.
type ConditionKind int

const (
	ConditionGT ConditionKind = iota
	ConditionLT
	ConditionEq
	ConditionInRange
	ConditionOutOfRange
	ConditionChangeRate
	ConditionCustom
)

// Condition is one rule's evaluation clause. Threshold is used by GT/LT/Eq/
// ChangeRate; Low/High bound InRange/OutOfRange; CustomFn backs Custom.
type Condition struct {
	Kind      ConditionKind
	Threshold float64
	Low, High float64
	CustomFn  func(current, previous float64) bool
}

// Evaluate reports whether the condition fires for the given current value,
// with previous supplying the ChangeRate baseline (0 if unavailable).
func (c Condition) Evaluate(current, previous float64) bool {
	switch c.Kind {
	case ConditionGT:
		return current > c.Threshold
	case ConditionLT:
		return current < c.Threshold
	case ConditionEq:
		return current == c.Threshold
	case ConditionInRange:
		return current >= c.Low && current <= c.High
	case ConditionOutOfRange:
		return current < c.Low || current > c.High
	case ConditionChangeRate:
		return (current - previous) > c.Threshold
	case ConditionCustom:
		if c.CustomFn == nil {
			return false
		}
		return c.CustomFn(current, previous)
	default:
		return false
	}
}

// AlertLevel grades an alert rule's severity.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

// Rule binds a metric name and a condition to the level and message an
// alert should carry when the condition fires. MinRefireInterval is the
// additive extension from the supplemented source material: a rule that
// has just fired will not re-fire until the interval elapses, even if the
// condition remains true on every tick. Zero means unmodified behavior —
// every alert-loop pass that still satisfies the condition is eligible to
// fire again immediately after a Resolved transition.
type Rule struct {
	ID                string
	MetricName        string
	Condition         Condition
	Level             AlertLevel
	Message           string
	Labels            map[string]string
	Annotations       map[string]string
	Enabled           bool
	MinRefireInterval time.Duration
}

// AlertState is an alert instance's position in the Firing/Resolved machine.
// Acknowledged and Silenced are orthogonal flags, not states: they mutate
// without affecting firing logic, per the spec's alert-loop note.
type AlertState int

const (
	StateFiring AlertState = iota
	StateResolved
)

// Event is one entry in the active-alert map, broadcast on every
// transition.
type Event struct {
	ID           string
	RuleID       string
	Level        AlertLevel
	State        AlertState
	FiredAtNs    int64
	ResolvedAtNs int64
	CurrentValue float64
	Threshold    float64
	Message      string
	Labels       map[string]string
	Annotations  map[string]string
	Acknowledged bool
	Silenced     bool
}
