package analysts

import (
	"fmt"
	"math"

	"FundPilot/internal/domain/models"
)

// closes extracts the close series from daily bars.
func closes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// sma returns the simple moving average of the last period values.
func sma(series []float64, period int) (float64, error) {
	if len(series) < period || period <= 0 {
		return 0, fmt.Errorf("insufficient data for SMA(%d): have %d", period, len(series))
	}
	sum := 0.0
	for _, v := range series[len(series)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// ema returns the exponential moving average of the series, seeded with an
// SMA over the first period values.
func ema(series []float64, period int) (float64, error) {
	if len(series) < period || period <= 0 {
		return 0, fmt.Errorf("insufficient data for EMA(%d): have %d", period, len(series))
	}

	multiplier := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	value := sum / float64(period)

	for i := period; i < len(series); i++ {
		value = series[i]*multiplier + value*(1-multiplier)
	}
	return value, nil
}

// rsi returns the Relative Strength Index over the given period using
// Wilder's smoothing.
func rsi(series []float64, period int) (float64, error) {
	if len(series) < period+1 {
		return 0, fmt.Errorf("insufficient data for RSI(%d): have %d", period, len(series))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// stddev returns the population standard deviation of the last period values.
func stddev(series []float64, period int) (float64, error) {
	mean, err := sma(series, period)
	if err != nil {
		return 0, err
	}
	var sumSq float64
	for _, v := range series[len(series)-period:] {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(period)), nil
}

// bollinger returns the upper and lower Bollinger bands (mid +/- k*sigma).
func bollinger(series []float64, period int, k float64) (upper, lower float64, err error) {
	mid, err := sma(series, period)
	if err != nil {
		return 0, 0, err
	}
	sigma, err := stddev(series, period)
	if err != nil {
		return 0, 0, err
	}
	return mid + k*sigma, mid - k*sigma, nil
}

// zscore returns how many standard deviations the last value sits from the
// trailing mean.
func zscore(series []float64, period int) (float64, error) {
	mean, err := sma(series, period)
	if err != nil {
		return 0, err
	}
	sigma, err := stddev(series, period)
	if err != nil {
		return 0, err
	}
	if sigma == 0 {
		return 0, nil
	}
	return (series[len(series)-1] - mean) / sigma, nil
}

// returnOver returns the fractional price change over the last n sessions.
func returnOver(series []float64, n int) (float64, error) {
	if len(series) < n+1 {
		return 0, fmt.Errorf("insufficient data for %d-session return: have %d", n, len(series))
	}
	base := series[len(series)-1-n]
	if base == 0 {
		return 0, fmt.Errorf("zero base price for %d-session return", n)
	}
	return series[len(series)-1]/base - 1, nil
}

// dailyReturns converts a close series into daily fractional returns.
func dailyReturns(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, series[i]/series[i-1]-1)
	}
	return out
}

// annualizedVolatility computes the annualized standard deviation of daily
// returns over the last period sessions.
func annualizedVolatility(series []float64, period int) (float64, error) {
	rets := dailyReturns(series)
	sigma, err := stddev(rets, period)
	if err != nil {
		return 0, err
	}
	return sigma * math.Sqrt(252), nil
}

func clampConfidence(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
