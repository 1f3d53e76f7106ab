package config

import (
	"fmt"
	"os"

	"github.com/newthinker/sepa/internal/core"
	"gopkg.in/yaml.v3"
)

// WeightsFile is the on-disk form of an optimized weight export. The
// regime sub-sections are present only when regime optimization ran.
type WeightsFile struct {
	Weights    core.Weights  `yaml:"weights"`
	BullMarket *core.Weights `yaml:"bull_market,omitempty"`
	BearMarket *core.Weights `yaml:"bear_market,omitempty"`
}

// MarshalWeights renders an optimized weight export as YAML. bull and
// bear may be nil when no regime optimization ran.
func MarshalWeights(weights core.Weights, bull, bear *core.Weights) ([]byte, error) {
	doc := WeightsFile{
		Weights:    weights,
		BullMarket: bull,
		BearMarket: bear,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling weights: %w", err)
	}
	return data, nil
}

// SaveWeights writes an optimized weight export to a file.
func SaveWeights(path string, weights core.Weights, bull, bear *core.Weights) error {
	data, err := MarshalWeights(weights, bull, bear)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing weights file: %w", err)
	}
	return nil
}

// SectorWeights is one sector's entry in a sector weight export.
type SectorWeights struct {
	Weights        core.Weights `yaml:"weights"`
	WinRatePct     float64      `yaml:"win_rate_pct"`
	AvgReturnPct   float64      `yaml:"avg_return_pct"`
	ImprovementPct float64      `yaml:"improvement_pct"`
}

// SectorWeightsFile is the on-disk form of a per-sector optimization
// export.
type SectorWeightsFile struct {
	Sectors map[string]SectorWeights `yaml:"sectors"`
}

// MarshalSectorWeights renders a per-sector weight export as YAML.
func MarshalSectorWeights(sectors map[string]SectorWeights) ([]byte, error) {
	data, err := yaml.Marshal(SectorWeightsFile{Sectors: sectors})
	if err != nil {
		return nil, fmt.Errorf("marshaling sector weights: %w", err)
	}
	return data, nil
}

// SaveSectorWeights writes a per-sector weight export to a file.
func SaveSectorWeights(path string, sectors map[string]SectorWeights) error {
	data, err := MarshalSectorWeights(sectors)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing sector weights file: %w", err)
	}
	return nil
}

// LoadSectorWeights reads an export written by SaveSectorWeights.
func LoadSectorWeights(path string) (SectorWeightsFile, error) {
	var doc SectorWeightsFile

	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading sector weights file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing sector weights file: %w", err)
	}
	for name, s := range doc.Sectors {
		if err := s.Weights.Validate(); err != nil {
			return doc, fmt.Errorf("sector %s: %w", name, err)
		}
	}
	return doc, nil
}

// LoadWeights reads a weight export written by SaveWeights.
func LoadWeights(path string) (WeightsFile, error) {
	var doc WeightsFile

	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading weights file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing weights file: %w", err)
	}
	if err := doc.Weights.Validate(); err != nil {
		return doc, err
	}
	return doc, nil
}
