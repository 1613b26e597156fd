package stats

import "rentstats/server/internal/models"

// Compute returns the regression statistics of a selection: total, slope as
// average price per square meter, its standard error and the inequality index.
// When the regression is undefined the result only carries Total, has
// InsufficientData set and models.ErrInsufficientData is returned.
func Compute(listings []models.Listing) (models.StatsResult, error) {
	result := models.StatsResult{Total: len(listings)}

	reg, err := Regress(listings)
	if err != nil {
		result.InsufficientData = true
		return result, err
	}

	result.AvgPricePerSqm = reg.Slope
	result.Intercept = reg.Intercept
	result.StdErr = reg.StdErr
	result.InequalityIndex = InequalityIndex(listings)
	return result, nil
}
