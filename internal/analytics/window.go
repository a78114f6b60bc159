package analytics

import "time"

// Window is a trailing span of calendar months.
// The current window includes its end; a previous window excludes it.
type Window struct {
	Start  time.Time
	End    time.Time
	Months int

	endExclusive bool
}

// TrailingWindow resolves the `months` whole calendar months before the month
// of now, plus that month up to now. Start is always the first of a month.
func TrailingWindow(now time.Time, months int) (Window, error) {
	if months < 1 {
		return Window{}, &ValidationError{Field: "window_months", Reason: "must be >= 1"}
	}
	return Window{
		Start:  monthStart(now).AddDate(0, -months, 0),
		End:    now,
		Months: months,
	}, nil
}

// Previous returns the window of equal length ending where w starts.
func (w Window) Previous() Window {
	return Window{
		Start:        w.Start.AddDate(0, -w.Months, 0),
		End:          w.Start,
		Months:       w.Months,
		endExclusive: true,
	}
}

// Complete drops the month in progress, leaving only whole months.
func (w Window) Complete() Window {
	if w.endExclusive {
		return w
	}
	return Window{
		Start:        w.Start,
		End:          monthStart(w.End),
		Months:       w.Months,
		endExclusive: true,
	}
}

// Span returns the window covering both w and its previous window.
func (w Window) Span() (from, to time.Time) {
	return w.Previous().Start, w.End
}

func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.endExclusive {
		return t.Before(w.End)
	}
	return !t.After(w.End)
}

type Period struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Months int    `json:"months"`
}

func (w Window) Period() Period {
	return Period{
		From:   w.Start.Format("2006-01-02"),
		To:     w.End.Format("2006-01-02"),
		Months: w.Months,
	}
}
