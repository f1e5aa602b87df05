package sim

// Difficulty maps a survivor count onto [0, MaxDifficulty]: zero at the
// population floor, MaxDifficulty at the ceiling, linear in between.
func (c Config) Difficulty(survivors int) float64 {
	if c.MaxAgents <= c.MinAgents {
		if survivors >= c.MaxAgents {
			return c.MaxDifficulty
		}
		return 0
	}
	d := c.MaxDifficulty * float64(survivors-c.MinAgents) / float64(c.MaxAgents-c.MinAgents)
	switch {
	case d < 0:
		return 0
	case d > c.MaxDifficulty:
		return c.MaxDifficulty
	default:
		return d
	}
}

// SmoothedKillersPerMove is the mean of the recent difficulty values.
func SmoothedKillersPerMove(difficulties []float64) float64 {
	if len(difficulties) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range difficulties {
		total += d
	}
	return total / float64(len(difficulties))
}

// pushWindow appends value to a copy of window, keeping the last size values.
func pushWindow(window []float64, value float64, size int) []float64 {
	start := 0
	if len(window)+1 > size {
		start = len(window) + 1 - size
	}
	out := make([]float64, 0, size)
	out = append(out, window[start:]...)
	return append(out, value)
}
