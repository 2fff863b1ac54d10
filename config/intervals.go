package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wingo/models"
)

type intervalFile struct {
	Intervals []intervalEntry `yaml:"intervals"`
}

type intervalEntry struct {
	Label    string `yaml:"label"`
	Duration string `yaml:"duration"`
}

// LoadIntervals reads an interval registry override from a YAML file:
//
//	intervals:
//	  - label: 30s
//	    duration: 30s
//	  - label: 1m
//	    duration: 1m
func LoadIntervals(path string) ([]models.Interval, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intervals file %s: %w", path, err)
	}
	return ParseIntervals(data)
}

// ParseIntervals decodes and validates an interval registry document
func ParseIntervals(data []byte) ([]models.Interval, error) {
	var file intervalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse intervals: %w", err)
	}

	intervals := make([]models.Interval, 0, len(file.Intervals))
	for _, entry := range file.Intervals {
		d, err := time.ParseDuration(entry.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q for interval %s: %w", entry.Duration, entry.Label, err)
		}
		intervals = append(intervals, models.Interval{Label: entry.Label, Duration: d})
	}

	if err := models.ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return intervals, nil
}
