// Package predictor implements the price-forecast capability: a rolling
// window of recent quotes from which the technical indicators and a
// short-horizon price forecast are derived. The model-training pipeline is
// external; this predictor is deliberately deterministic so the decision
// layer can be tested with synthetic inputs.
package predictor

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/model"
)

const (
	windowCap    = 300 // enough history for SMA200
	warmupTicks  = 14
	atrSpan      = 10
	lookback     = 14
	stochSmooth  = 3
	atrFloorFrac = 0.0002 // below this fraction of price the ATR is considered degenerate
	atrFallback  = 0.0005 // fallback ATR as fraction of price
)

// Forecast is the atomically-returned predictor output. Indicators carry a
// Warmed flag instead of optional fields; cold forecasts hold neutral
// defaults and Price equal to the current ask.
type Forecast struct {
	Price      float64
	Indicators model.Indicators
}

// Predictor accumulates ticks for one symbol. Reset must be called on symbol
// change so statistics never bleed across symbols.
type Predictor struct {
	mu      sync.Mutex
	history []float64
	kHist   []float64
}

// New returns an empty predictor.
func New() *Predictor {
	return &Predictor{
		history: make([]float64, 0, windowCap),
		kHist:   make([]float64, 0, stochSmooth),
	}
}

// Reset clears the rolling window. Used when the active symbol changes.
func (p *Predictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = p.history[:0]
	p.kHist = p.kHist[:0]
	log.Debug().Msg("predictor window reset")
}

// Warmed reports whether enough ticks have accumulated for real indicators.
func (p *Predictor) Warmed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history) >= warmupTicks
}

// Predict appends the tick to the window and returns the forecast. It never
// fails: while the window is cold it returns neutral defaults (RSI 50,
// stochastics 50, price = ask).
func (p *Predictor) Predict(tick model.MarketTick) Forecast {
	p.mu.Lock()
	defer p.mu.Unlock()

	ask := tick.Ask
	p.history = append(p.history, ask)
	if len(p.history) > windowCap {
		p.history = p.history[1:]
	}

	if len(p.history) < warmupTicks {
		return Forecast{Price: ask, Indicators: model.Neutral()}
	}

	n := len(p.history)
	ind := model.Indicators{
		RSI:    p.rsi(),
		SMA10:  p.sma(10),
		Warmed: true,
	}
	if n >= 200 {
		ind.SMA200 = p.sma(200)
	}

	ind.StochK = p.stochK(ask)
	p.kHist = append(p.kHist, ind.StochK)
	if len(p.kHist) > stochSmooth {
		p.kHist = p.kHist[1:]
	}
	ind.StochD = mean(p.kHist)

	ind.ATR = p.atr(ask)

	return Forecast{Price: p.forecast(ask), Indicators: ind}
}

// forecast extrapolates the next price from recent momentum: a blend of the
// 1-tick and 5-tick returns. Crude, but deterministic and symbol-agnostic;
// a trained model plugs in behind the same capability surface.
func (p *Predictor) forecast(ask float64) float64 {
	n := len(p.history)
	ret1 := ret(p.history[n-2], p.history[n-1])
	ret5 := 0.0
	if n >= 6 {
		ret5 = ret(p.history[n-6], p.history[n-1]) / 5
	}
	predReturn := 0.5*ret1 + 0.5*ret5
	return ask * (1 + predReturn)
}

func (p *Predictor) sma(span int) float64 {
	n := len(p.history)
	if span > n {
		span = n
	}
	return mean(p.history[n-span:])
}

// rsi is the simple-mean RSI over the last 14 deltas.
func (p *Predictor) rsi() float64 {
	n := len(p.history)
	start := n - lookback
	if start < 1 {
		start = 1
	}
	var gain, loss float64
	var count int
	for i := start; i < n; i++ {
		d := p.history[i] - p.history[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
		count++
	}
	if count == 0 {
		return 50
	}
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := (gain / float64(count)) / (loss / float64(count))
	return 100 - 100/(1+rs)
}

func (p *Predictor) stochK(ask float64) float64 {
	n := len(p.history)
	window := p.history[n-lookback:]
	lo, hi := window[0], window[0]
	for _, v := range window {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 50
	}
	return 100 * (ask - lo) / (hi - lo)
}

// atr approximates true range from tick data: the high/low span of each
// 10-tick window, averaged over the last 14 windows. Degenerate values fall
// back to a fixed fraction of price so SL/TP distances never collapse.
func (p *Predictor) atr(ask float64) float64 {
	n := len(p.history)
	var sum float64
	var count int
	for end := n; end >= atrSpan && count < lookback; end-- {
		window := p.history[end-atrSpan : end]
		lo, hi := window[0], window[0]
		for _, v := range window {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		sum += hi - lo
		count++
	}
	if count == 0 {
		return atrFallback * ask
	}
	atr := sum / float64(count)
	if atr < atrFloorFrac*ask {
		atr = atrFallback * ask
	}
	return atr
}

func ret(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
