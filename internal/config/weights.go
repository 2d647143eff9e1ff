package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Built-in weight profile keys
const (
	ProfileKeyDefault   = "default"
	ProfileKeyCodeHeavy = "code_heavy"
	ProfileKeyDocsHeavy = "docs_heavy"
	ProfileKeySafety    = "safety"
)

// WeightProfile defines per-source weighting for blended retrieval
type WeightProfile struct {
	ProfileKey  string             `yaml:"profile_key"`
	Description string             `yaml:"description"`
	Weights     map[string]float64 `yaml:"weights"`
}

// WeightProfiles holds the built-in retrieval weight profiles.
// Weights are relative multipliers applied to per-source scores
// before blending; they do not need to sum to 1.
var WeightProfiles = map[string]WeightProfile{
	ProfileKeyDefault: {
		ProfileKey:  ProfileKeyDefault,
		Description: "Balanced blend favoring code matches",
		Weights: map[string]float64{
			"code":          0.4,
			"documentation": 0.3,
			"prevention":    0.2,
			"task":          0.1,
		},
	},
	ProfileKeyCodeHeavy: {
		ProfileKey:  ProfileKeyCodeHeavy,
		Description: "Symbol lookups and refactoring, code dominates",
		Weights: map[string]float64{
			"code":          0.6,
			"documentation": 0.2,
			"prevention":    0.1,
			"task":          0.1,
		},
	},
	ProfileKeyDocsHeavy: {
		ProfileKey:  ProfileKeyDocsHeavy,
		Description: "Onboarding and how-to questions, documentation dominates",
		Weights: map[string]float64{
			"code":          0.2,
			"documentation": 0.5,
			"prevention":    0.2,
			"task":          0.1,
		},
	},
	ProfileKeySafety: {
		ProfileKey:  ProfileKeySafety,
		Description: "Incident review, prevention entries dominate",
		Weights: map[string]float64{
			"code":          0.2,
			"documentation": 0.2,
			"prevention":    0.5,
			"task":          0.1,
		},
	},
}

// GetProfile returns a built-in weight profile by key
func GetProfile(key string) (WeightProfile, error) {
	profile, ok := WeightProfiles[key]
	if !ok {
		return WeightProfile{}, fmt.Errorf("unknown weight profile %q", key)
	}
	return profile, nil
}

// GetDefaultProfile returns the default weight profile
func GetDefaultProfile() WeightProfile {
	return WeightProfiles[ProfileKeyDefault]
}

// LoadProfileFile loads a custom weight profile from a YAML file
func LoadProfileFile(path string) (WeightProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WeightProfile{}, fmt.Errorf("failed to read weight profile: %w", err)
	}

	var profile WeightProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return WeightProfile{}, fmt.Errorf("failed to parse weight profile: %w", err)
	}

	if len(profile.Weights) == 0 {
		return WeightProfile{}, fmt.Errorf("weight profile %s defines no weights", path)
	}
	for source, w := range profile.Weights {
		if w < 0 || w > 1 {
			return WeightProfile{}, fmt.Errorf("weight for %q must be in [0, 1], got %v", source, w)
		}
	}

	return profile, nil
}
