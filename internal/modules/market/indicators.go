package market

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// DefaultIndicatorPeriod is used when the caller does not pick a window
const DefaultIndicatorPeriod = 14

// Indicators summarizes the recent price history of one symbol.
// Pointer fields are nil when there is not enough history.
type Indicators struct {
	Symbol     string   `json:"symbol"`
	Period     int      `json:"period"`
	Points     int      `json:"points"`
	Last       float64  `json:"last"`
	SMA        *float64 `json:"sma"`
	RSI        *float64 `json:"rsi"`
	Volatility *float64 `json:"volatility"` // stddev of per-refresh returns, in percent
}

// ComputeIndicators derives SMA, RSI and return volatility from history (oldest first)
func ComputeIndicators(symbol string, history []float64, period int) Indicators {
	if period <= 1 {
		period = DefaultIndicatorPeriod
	}

	ind := Indicators{Symbol: symbol, Period: period, Points: len(history)}
	if len(history) == 0 {
		return ind
	}
	ind.Last = history[len(history)-1]

	if len(history) >= period {
		ind.SMA = lastValid(talib.Sma(history, period))
	}
	if len(history) >= period+1 {
		ind.RSI = lastValid(talib.Rsi(history, period))
	}

	returns := periodReturns(history, period)
	if len(returns) >= 2 {
		v := stat.StdDev(returns, nil) * 100
		ind.Volatility = &v
	}

	return ind
}

// periodReturns returns the simple returns over the last period+1 prices
func periodReturns(history []float64, period int) []float64 {
	start := len(history) - period - 1
	if start < 0 {
		start = 0
	}
	window := history[start:]

	returns := make([]float64, 0, len(window))
	for i := 1; i < len(window); i++ {
		if window[i-1] > 0 {
			returns = append(returns, window[i]/window[i-1]-1)
		}
	}
	return returns
}

func lastValid(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v = round2(v)
	return &v
}
