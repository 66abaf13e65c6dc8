package analytics

import (
	"math"
	"slices"
	"time"

	"github.com/Mvgnu/smplat-sub001/internal/history"
)

// Build computes the analytics report for a sequence of history entries.
// Entry order does not matter: points are sorted by generation time before
// any pairwise computation. Entries whose GeneratedAt does not parse are
// excluded from the time series (degenerate input, not an error); their
// remediation records still feed the recommendation ranking.
func Build(entries []history.HistoryEntry) Report {
	points := timeSeries(entries)

	return Report{
		RegressionVelocity: regressionVelocity(points),
		SeverityMomentum:   severityMomentum(points),
		TimeToGreen:        timeToGreen(points),
		Recommendations:    recommend(entries),
	}
}

// point is one usable history sample on the time axis.
type point struct {
	at      time.Time
	diffs   float64
	info    float64
	warning float64
	blocker float64
}

func timeSeries(entries []history.HistoryEntry) []point {
	points := make([]point, 0, len(entries))
	for _, entry := range entries {
		at, err := time.Parse(time.RFC3339, entry.Manifest.GeneratedAt)
		if err != nil {
			continue
		}
		info, warning, blocker := noteCounts(entry)
		points = append(points, point{
			at:      at,
			diffs:   float64(entry.Aggregates.DiffDetectedRoutes),
			info:    info,
			warning: warning,
			blocker: blocker,
		})
	}

	slices.SortStableFunc(points, func(a, b point) int {
		return a.at.Compare(b.at)
	})

	return points
}

// pairwiseRates computes value deltas over elapsed hours for each adjacent
// pair of points. Pairs with no elapsed time are skipped.
func pairwiseRates(points []point, value func(point) float64) []float64 {
	var rates []float64
	for i := 1; i < len(points); i++ {
		elapsed := points[i].at.Sub(points[i-1].at).Hours()
		if elapsed <= 0 {
			continue
		}
		rates = append(rates, (value(points[i])-value(points[i-1]))/elapsed)
	}
	return rates
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func regressionVelocity(points []point) RegressionVelocity {
	velocity := RegressionVelocity{SampleSize: len(points)}
	if len(points) < 2 {
		return velocity
	}

	rates := pairwiseRates(points, func(p point) float64 { return p.diffs })
	if len(rates) == 0 {
		return velocity
	}

	velocity.AveragePerHour = mean(rates)
	velocity.CurrentPerHour = rates[len(rates)-1]
	velocity.Confidence = rateConfidence(rates, velocity.AveragePerHour)

	return velocity
}

// rateConfidence combines sample count and dispersion: the inverse of the
// mean absolute deviation from the average, scaled into [0,1] and rising
// with sample size. A single wildly oscillating series scores low even with
// many samples; a steady series approaches 1 as samples accumulate.
func rateConfidence(rates []float64, average float64) float64 {
	deviation := 0.0
	for _, r := range rates {
		deviation += math.Abs(r - average)
	}
	deviation /= float64(len(rates))

	dispersion := 1 / (1 + deviation)
	size := float64(len(rates)) / float64(len(rates)+2)

	return clamp01(dispersion * size)
}

func severityMomentum(points []point) SeverityMomentum {
	if len(points) < 2 {
		return SeverityMomentum{}
	}

	momentum := SeverityMomentum{
		Info:    mean(pairwiseRates(points, func(p point) float64 { return p.info })),
		Warning: mean(pairwiseRates(points, func(p point) float64 { return p.warning })),
		Blocker: mean(pairwiseRates(points, func(p point) float64 { return p.blocker })),
	}

	// Blockers weighted most heavily: they are unresolved release risk.
	momentum.Overall = (momentum.Info*1 + momentum.Warning*1.5 + momentum.Blocker*2.25) / 3.5

	return momentum
}

// timeToGreen fits diffs = intercept + slope*hours by ordinary least
// squares, with the earliest point as the time origin, and solves for the
// zero crossing. Confidence is the fit's R² clamped into [0,1].
func timeToGreen(points []point) TimeToGreen {
	forecast := TimeToGreen{}
	if len(points) < 2 {
		return forecast
	}

	origin := points[0].at
	n := float64(len(points))

	var sumX, sumY, sumXX, sumXY float64
	for _, p := range points {
		x := p.at.Sub(origin).Hours()
		sumX += x
		sumY += p.diffs
		sumXX += x * x
		sumXY += x * p.diffs
	}

	varX := sumXX - sumX*sumX/n
	if varX == 0 {
		// All samples at the same instant - no trend to fit.
		return forecast
	}

	slope := (sumXY - sumX*sumY/n) / varX
	intercept := (sumY - slope*sumX) / n

	forecast.SlopePerHour = slope
	forecast.Intercept = intercept

	if slope >= 0 {
		// Diffs flat or trending up - "green" is not approaching.
		return forecast
	}

	forecast.Confidence = clamp01(rSquared(points, origin, slope, intercept))

	hoursToZero := -intercept / slope
	latestElapsed := points[len(points)-1].at.Sub(origin).Hours()
	if hoursToZero <= latestElapsed {
		// Projected crossing is already behind the latest sample.
		return forecast
	}

	forecast.ForecastHours = hoursToZero - latestElapsed
	at := origin.Add(time.Duration(hoursToZero * float64(time.Hour))).UTC().Format(time.RFC3339)
	forecast.ForecastAt = &at

	return forecast
}

func rSquared(points []point, origin time.Time, slope, intercept float64) float64 {
	n := float64(len(points))
	meanY := 0.0
	for _, p := range points {
		meanY += p.diffs
	}
	meanY /= n

	var ssRes, ssTot float64
	for _, p := range points {
		x := p.at.Sub(origin).Hours()
		predicted := intercept + slope*x
		ssRes += (p.diffs - predicted) * (p.diffs - predicted)
		ssTot += (p.diffs - meanY) * (p.diffs - meanY)
	}

	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
