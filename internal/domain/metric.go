package domain

// MetricType enumerates the kinds of metric a monitoring plugin can report.
type MetricType int

const (
	MetricCounter MetricType = iota
	MetricGauge
	MetricHistogram
	MetricSummary
	MetricSet
	MetricCustom
)

// MetricValue is a tagged union over the value shapes a MetricDataPoint can
// carry.
type MetricValue struct {
	Integer      *int64
	Float        *float64
	Decimal      *Money
	String       *string
	Boolean      *bool
	Distribution []float64
	Percentiles  map[string]float64
}

// AsFloat computes the numeric value used for alert-rule evaluation:
// integer/float/decimal pass through, bool maps to {0,1}, other kinds are 0.
func (v MetricValue) AsFloat() float64 {
	switch {
	case v.Integer != nil:
		return float64(*v.Integer)
	case v.Float != nil:
		return *v.Float
	case v.Decimal != nil:
		f, _ := v.Decimal.Float64()
		return f
	case v.Boolean != nil:
		if *v.Boolean {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// MetricDataPoint is one observation broadcast by the monitoring engine's
// collection loop.
type MetricDataPoint struct {
	MetricName  string
	Type        MetricType
	Value       MetricValue
	Labels      map[string]string
	TimestampNs int64
	Source      string
}
