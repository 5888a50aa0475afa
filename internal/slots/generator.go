package slots

import "time"

// Label layout for pickup slots, time-of-day only. Capacity is scoped to
// (vendor, label, calendar day), not to an absolute instant.
const LabelLayout = "15:04"

const (
	// leadTime is how far ahead of "now" the first bookable slot starts.
	leadTime = 10 * time.Minute
	// interval between consecutive slots.
	interval = 10 * time.Minute
	// window is how far past the first slot labels are generated.
	window = time.Hour
)

// Generator produces the ordered sequence of bookable slot labels for the
// current moment. The clock is injected so tests can pin it.
type Generator struct {
	Now func() time.Time
}

func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{Now: now}
}

// Available returns the slot labels bookable from now, ascending. The first
// slot is now+10m with the minute floored to a multiple of 10; labels run
// every 10 minutes up to and including one hour after the first.
func (g *Generator) Available() []string {
	start := g.Now().Add(leadTime)
	start = start.Truncate(time.Minute)
	start = start.Add(-time.Duration(start.Minute()%10) * time.Minute)

	end := start.Add(window)
	labels := make([]string, 0, int(window/interval)+1)
	for cur := start; !cur.After(end); cur = cur.Add(interval) {
		labels = append(labels, cur.Format(LabelLayout))
	}
	return labels
}

// ValidLabel reports whether s is a well-formed HH:MM slot label.
func ValidLabel(s string) bool {
	_, err := time.Parse(LabelLayout, s)
	return err == nil
}

// Today returns the calendar day of the injected clock, truncated to
// midnight. Admission counts are scoped to this day via order created_at.
func (g *Generator) Today() time.Time {
	now := g.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
