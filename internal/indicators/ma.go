package indicators

// SMA is the simple moving average over a sliding window of period values.
func SMA(values []float64, period int) Series {
	out := newSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out.set(i, sum/float64(period))
		}
	}
	return out
}

// EMA is the exponential moving average seeded with the SMA of the first period values.
func EMA(values []float64, period int) Series {
	out := newSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	alpha := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	prev := seed / float64(period)
	out.set(period-1, prev)

	for i := period; i < len(values); i++ {
		prev = values[i]*alpha + prev*(1-alpha)
		out.set(i, prev)
	}
	return out
}
