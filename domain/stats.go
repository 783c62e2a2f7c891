package domain

// Stats summarises a snapshot.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// ComputeStats derives the counters from tasks. Active is always Total - Completed.
func ComputeStats(tasks []Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed == 1 {
			s.Completed++
		}
	}
	s.Active = s.Total - s.Completed
	return s
}
