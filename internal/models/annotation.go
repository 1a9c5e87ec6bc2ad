package models

// CrisisPeriod is a named historical range highlighted on the chart.
// StartMonth and EndMonth are looked up verbatim against dataset months.
type CrisisPeriod struct {
	Name       string `json:"name"`
	StartMonth string `json:"start_month"`
	EndMonth   string `json:"end_month"`
	Color      string `json:"color"`
}

// RegimeSwitchEvent marks the month where the regime flips.
type RegimeSwitchEvent struct {
	Month string `json:"month"`
	From  Regime `json:"from"`
	To    Regime `json:"to"`
}

// Annotations groups the independently authored overlay inputs.
type Annotations struct {
	Crises         []CrisisPeriod      `json:"crises"`
	RegimeSwitches []RegimeSwitchEvent `json:"regime_switches"`
}

// DeriveRegimeSwitches builds switch events from the regime column of ds:
// one event at every month whose regime differs from the previous month.
func DeriveRegimeSwitches(ds *Dataset) []RegimeSwitchEvent {
	var events []RegimeSwitchEvent
	for i := 1; i < ds.Len(); i++ {
		prev, cur := ds.Points[i-1].Regime, ds.Points[i].Regime
		if prev != cur {
			events = append(events, RegimeSwitchEvent{
				Month: ds.Points[i].Month,
				From:  prev,
				To:    cur,
			})
		}
	}
	return events
}
