package ledger

// Stats summarises a set of entries.
type Stats struct {
	TotalLogs     int              `json:"totalLogs"`
	TotalTime     int              `json:"totalTime"`
	AverageTime   float64          `json:"averageTime"`
	CategoryStats map[Category]int `json:"categoryStats"`
	OutcomeStats  map[Outcome]int  `json:"outcomeStats"`
	RecentLogs    []Entry          `json:"recentLogs"`
}

// ComputeStats summarises entries, which must be newest first. recent caps
// RecentLogs.
func ComputeStats(entries []Entry, recent int) Stats {
	s := Stats{
		TotalLogs:     len(entries),
		CategoryStats: make(map[Category]int),
		OutcomeStats:  make(map[Outcome]int),
		RecentLogs:    []Entry{},
	}
	for _, e := range entries {
		s.TotalTime += e.Time
		s.CategoryStats[e.Category]++
		s.OutcomeStats[e.Outcome]++
	}
	if len(entries) > 0 {
		s.AverageTime = float64(s.TotalTime) / float64(len(entries))
	}
	n := min(recent, len(entries))
	for _, e := range entries[:max(n, 0)] {
		s.RecentLogs = append(s.RecentLogs, e.Clone())
	}
	return s
}

// Stats summarises the whole ledger.
func (l *Ledger) Stats(recent int) Stats {
	return ComputeStats(l.Snapshot(), recent)
}
