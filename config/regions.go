package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"rentstats/server/internal/models"
)

// RegionsFile is the on-disk layout of the regions configuration
type RegionsFile struct {
	Regions []models.Region `yaml:"regions"`
}

// LoadRegions reads and validates the regions configuration from path
func LoadRegions(path string) ([]models.Region, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}

	var file RegionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse regions file: %w", err)
	}

	if err := ValidateRegions(file.Regions); err != nil {
		return nil, err
	}
	return file.Regions, nil
}

// ValidateRegions checks that every region has a unique name and a valid
// default query
func ValidateRegions(regions []models.Region) error {
	seen := make(map[string]bool, len(regions))
	for i, region := range regions {
		if region.Name == "" {
			return fmt.Errorf("region %d has no name", i)
		}
		if seen[region.Name] {
			return fmt.Errorf("duplicate region: %s", region.Name)
		}
		seen[region.Name] = true

		if _, err := region.Query().Normalize(); err != nil {
			return fmt.Errorf("region %s: %w", region.Name, err)
		}
	}
	return nil
}

// GetRegionNames returns the names of the given regions
func GetRegionNames(regions []models.Region) []string {
	names := make([]string, len(regions))
	for i, region := range regions {
		names[i] = region.Name
	}
	return names
}

// GetRegionByName returns a region configuration by name
func GetRegionByName(regions []models.Region, name string) *models.Region {
	for _, region := range regions {
		if region.Name == name {
			r := region
			return &r
		}
	}
	return nil
}
