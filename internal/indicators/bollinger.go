package indicators

import "math"

// Bands holds Bollinger upper, middle (SMA) and lower bands.
type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger computes bands k population standard deviations around the rolling mean.
// The mean and variance come from a running sum and sum of squares.
func Bollinger(values []float64, period int, k float64) Bands {
	b := Bands{
		Upper:  newSeries(len(values)),
		Middle: newSeries(len(values)),
		Lower:  newSeries(len(values)),
	}
	if period <= 0 || len(values) < period {
		return b
	}

	n := float64(period)
	var sum, sumSq float64
	for i, v := range values {
		sum += v
		sumSq += v * v
		if i >= period {
			old := values[i-period]
			sum -= old
			sumSq -= old * old
		}
		if i < period-1 {
			continue
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		// running sums can leave a tiny negative residue on flat windows
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)
		b.Middle.set(i, mean)
		b.Upper.set(i, mean+k*sd)
		b.Lower.set(i, mean-k*sd)
	}
	return b
}
