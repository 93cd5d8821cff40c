package simulate

// meanVar accumulates a running mean and variance with Welford's method,
// one value per completed run.
type meanVar struct {
	count int
	mean  float64
	m2    float64
}

func (mv *meanVar) update(value float64) {
	mv.count++
	delta := value - mv.mean
	mv.mean += delta / float64(mv.count)
	mv.m2 += delta * (value - mv.mean)
}

// variance returns the population variance of the observed values. Zero
// until at least two values have been seen.
func (mv *meanVar) variance() float64 {
	if mv.count < 2 {
		return 0
	}
	return mv.m2 / float64(mv.count)
}
