package core

// Filter narrows an expense listing. Zero fields are ignored.
type Filter struct {
	ProjectID string
	Category  string
	From      Date // inclusive
	To        Date // inclusive
	Search    string
	Limit     int
	Offset    int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Normalized clamps Limit into (0, MaxListLimit] and Offset to >= 0.
func (f Filter) Normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// MonthRange returns the first and last day of year/month.
func MonthRange(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}
