// Package stats computes the price indicators of a listing selection: the
// regression of rent on living space, the neighborhood inequality index and
// per-listing price deciles.
package stats

import (
	"math"

	"rentstats/server/internal/models"
)

// Regression is an ordinary least squares fit of rent = Slope*space + Intercept.
type Regression struct {
	N         int
	Slope     float64
	Intercept float64
	// StdErr is the standard error of Slope.
	StdErr float64
}

// Regress fits total rent against living space. It returns
// models.ErrInsufficientData for fewer than two listings or when every
// listing has the same living space.
func Regress(listings []models.Listing) (Regression, error) {
	n := len(listings)
	if n < 2 {
		return Regression{N: n}, models.ErrInsufficientData
	}

	first := listings[0].LivingSpace
	varies := false
	var sumX, sumY float64
	for _, l := range listings {
		if l.LivingSpace != first {
			varies = true
		}
		sumX += l.LivingSpace
		sumY += l.TotalRent
	}
	if !varies {
		return Regression{N: n}, models.ErrInsufficientData
	}

	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	// Centered sums keep the fit stable for large rents and areas.
	var sxx, sxy float64
	for _, l := range listings {
		dx := l.LivingSpace - meanX
		sxx += dx * dx
		sxy += dx * (l.TotalRent - meanY)
	}
	if sxx == 0 {
		return Regression{N: n}, models.ErrInsufficientData
	}

	slope := sxy / sxx
	intercept := meanY - slope*meanX

	var stdErr float64
	if n > 2 {
		var sse float64
		for _, l := range listings {
			r := l.TotalRent - (intercept + slope*l.LivingSpace)
			sse += r * r
		}
		stdErr = math.Sqrt(sse/float64(n-2)) / math.Sqrt(sxx)
	}

	return Regression{
		N:         n,
		Slope:     slope,
		Intercept: intercept,
		StdErr:    stdErr,
	}, nil
}
