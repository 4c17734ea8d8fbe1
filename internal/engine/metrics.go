package engine

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// riskFreeRate is the annual risk-free rate assumed by Sharpe/Sortino.
const riskFreeRate = 0.02

var periodsPerYear = map[string]float64{
	"1m":  525600,
	"5m":  105120,
	"15m": 35040,
	"30m": 17520,
	"1h":  8760,
	"4h":  2190,
	"1d":  365,
	"1w":  52,
}

// PeriodsPerYear maps a timeframe to its annualization factor. Unknown
// timeframes are treated as hourly.
func PeriodsPerYear(timeframe string) float64 {
	if p, ok := periodsPerYear[timeframe]; ok {
		return p
	}
	return 8760
}

// CalculateMetrics derives the performance report for one model. It is a
// pure function of immutable inputs: recomputing over the same equity
// history and trade log yields identical output.
func CalculateMetrics(
	state *model.ModelState,
	history []*model.EquitySnapshot,
	trades []*model.TradeRecord,
	initialBalance decimal.Decimal,
	periods float64,
) model.PerformanceMetrics {
	totalReturnUSD := state.Equity.Sub(initialBalance)
	totalReturn := totalReturnUSD.Div(initialBalance).InexactFloat64() * 100

	winRate := 0.0
	if state.TotalTrades > 0 {
		winRate = float64(state.WinningTrades) / float64(state.TotalTrades) * 100
	}
	losingTrades := state.TotalTrades - state.WinningTrades

	// Trade analysis over realizing legs only.
	var totalWins, totalLosses float64
	var winCount, lossCount int
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		pnl := t.PnL.InexactFloat64()
		if pnl > 0 {
			totalWins += pnl
			winCount++
		} else {
			totalLosses += math.Abs(pnl)
			lossCount++
		}
	}

	averageWin := 0.0
	if winCount > 0 {
		averageWin = totalWins / float64(winCount)
	}
	averageLoss := 0.0
	if lossCount > 0 {
		averageLoss = totalLosses / float64(lossCount)
	}

	profitFactor := 0.0
	switch {
	case totalLosses > 0:
		profitFactor = totalWins / totalLosses
	case totalWins > 0:
		profitFactor = math.Inf(1)
	}

	returns := stepReturns(history)
	volatility := sampleStdDev(returns)

	averageReturn := 0.0
	if len(returns) > 0 {
		averageReturn = mean(returns)
	}
	annualizedReturn := averageReturn * periods
	annualizedVolatility := volatility * math.Sqrt(periods)

	sharpe := 0.0
	if annualizedVolatility > 0 {
		sharpe = (annualizedReturn - riskFreeRate) / annualizedVolatility
	}

	// Sortino uses only negative returns for the deviation.
	sortino := 0.0
	var downsideSquares float64
	downsideCount := 0
	for _, r := range returns {
		if r < 0 {
			downsideSquares += r * r
			downsideCount++
		}
	}
	if downsideCount > 0 {
		downsideVol := math.Sqrt(downsideSquares/float64(downsideCount)) * math.Sqrt(periods)
		if downsideVol > 0 {
			sortino = (annualizedReturn - riskFreeRate) / downsideVol
		}
	}

	maxDrawdownPct := state.MaxDrawdown.InexactFloat64() * 100
	calmar := 0.0
	if maxDrawdownPct > 0 {
		calmar = math.Abs(annualizedReturn) / maxDrawdownPct
	}

	currentDrawdown := 0.0
	if state.PeakEquity.IsPositive() {
		currentDrawdown = state.PeakEquity.Sub(state.Equity).Div(state.PeakEquity).InexactFloat64() * 100
	}

	m := model.PerformanceMetrics{
		ModelID:         state.ModelID,
		TotalReturn:     roundTo(totalReturn, 2),
		TotalReturnUSD:  totalReturnUSD.Round(2),
		SharpeRatio:     roundTo(sharpe, 3),
		SortinoRatio:    roundTo(sortino, 3),
		CalmarRatio:     roundTo(calmar, 3),
		MaxDrawdown:     roundTo(maxDrawdownPct, 2),
		CurrentDrawdown: roundTo(currentDrawdown, 2),
		Volatility:      roundTo(annualizedVolatility*100, 2),
		WinRate:         roundTo(winRate, 2),
		TotalTrades:     state.TotalTrades,
		WinningTrades:   state.WinningTrades,
		LosingTrades:    losingTrades,
		AverageWin:      roundTo(averageWin, 2),
		AverageLoss:     roundTo(averageLoss, 2),
		ProfitFactor:    roundTo(profitFactor, 3),
		FinalEquity:     state.Equity.Round(2),
		PeakEquity:      state.PeakEquity.Round(2),
	}
	m.RiskScore = RiskScore(m)
	m.Grade = PerformanceGrade(m)
	return m
}

// stepReturns turns the equity curve into consecutive fractional deltas.
func stepReturns(history []*model.EquitySnapshot) []float64 {
	var returns []float64
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Equity
		if prev.IsPositive() {
			ret := history[i].Equity.Sub(prev).Div(prev).InexactFloat64()
			returns = append(returns, ret)
		}
	}
	return returns
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the n-1 standard deviation; 0 for fewer than 2 points.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func roundTo(x float64, places int) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

// RiskScore maps a report to 0 (low risk) .. 100 (high risk).
func RiskScore(m model.PerformanceMetrics) int {
	score := math.Min(m.MaxDrawdown*0.8, 40)
	score += math.Min(m.Volatility*0.3, 30)
	score += math.Max(0, 20-m.WinRate*0.2)

	if m.SharpeRatio > 0 {
		score += math.Max(0, 10-m.SharpeRatio*5)
	} else {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

var gradeBands = []struct {
	floor float64
	grade model.Grade
}{
	{90, "A+"}, {80, "A"}, {70, "B+"}, {60, "B"},
	{50, "C+"}, {40, "C"}, {30, "D"},
}

// PerformanceGrade blends return (40%), inverted risk (35%) and Sharpe
// contribution (25%) into a letter grade.
func PerformanceGrade(m model.PerformanceMetrics) model.Grade {
	returnScore := math.Max(0, m.TotalReturn)
	riskScore := float64(RiskScore(m))
	sharpeScore := math.Max(0, m.SharpeRatio*20)

	composite := returnScore*0.4 + (100-riskScore)*0.35 + sharpeScore*0.25

	for _, band := range gradeBands {
		if composite >= band.floor {
			return band.grade
		}
	}
	return "F"
}

// RankLeaderboard orders reports best first: return, then Sharpe, then
// drawdown as tiebreakers.
func RankLeaderboard(ms []model.PerformanceMetrics) []model.PerformanceMetrics {
	ranked := make([]model.PerformanceMetrics, len(ms))
	copy(ranked, ms)
	sort.SliceStable(ranked, func(i, j int) bool {
		if math.Abs(ranked[i].TotalReturn-ranked[j].TotalReturn) > 0.01 {
			return ranked[i].TotalReturn > ranked[j].TotalReturn
		}
		if math.Abs(ranked[i].SharpeRatio-ranked[j].SharpeRatio) > 0.001 {
			return ranked[i].SharpeRatio > ranked[j].SharpeRatio
		}
		return ranked[i].MaxDrawdown < ranked[j].MaxDrawdown
	})
	return ranked
}

// PortfolioMetrics aggregates reports across the whole arena.
func PortfolioMetrics(ms []model.PerformanceMetrics) model.PortfolioMetrics {
	if len(ms) == 0 {
		return model.PortfolioMetrics{}
	}

	returns := make([]float64, len(ms))
	var avgVol float64
	for i, m := range ms {
		returns[i] = m.TotalReturn
		avgVol += m.Volatility
	}
	avgVol /= float64(len(ms))

	avg := mean(returns)
	best, worst := returns[0], returns[0]
	for _, r := range returns {
		best = math.Max(best, r)
		worst = math.Min(worst, r)
	}

	var variance float64
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))

	diversification := 0.0
	if avgVol > 0 {
		diversification = math.Max(0, (1-math.Sqrt(variance)/avgVol)*100)
	}

	return model.PortfolioMetrics{
		AverageReturn:          roundTo(avg, 2),
		BestPerformer:          roundTo(best, 2),
		WorstPerformer:         roundTo(worst, 2),
		DiversificationBenefit: roundTo(diversification, 2),
	}
}
