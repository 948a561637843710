package indicators

// MACD returns the MACD line (fast EMA - slow EMA) and its signal line. The signal is the
// EMA of the gap-free MACD values, re-expanded onto the original indices.
func MACD(values []float64, fast, slow, signal int) (macd Series, sig Series) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macd = newSeries(len(values))
	for i := range values {
		f, ok1 := fastEMA.At(i)
		s, ok2 := slowEMA.At(i)
		if ok1 && ok2 {
			macd.set(i, f-s)
		}
	}

	sig = MapDefined(macd, func(compact []float64) Series {
		return EMA(compact, signal)
	})
	return macd, sig
}
