package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetProfile(t *testing.T) {
	tests := []struct {
		name       string
		profileKey string
		wantErr    bool
	}{
		{"Default exists", ProfileKeyDefault, false},
		{"Code heavy exists", ProfileKeyCodeHeavy, false},
		{"Docs heavy exists", ProfileKeyDocsHeavy, false},
		{"Safety exists", ProfileKeySafety, false},
		{"Non-existent profile returns error", "non_existent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := GetProfile(tt.profileKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetProfile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if profile.ProfileKey != tt.profileKey {
					t.Errorf("expected ProfileKey %s, got %s", tt.profileKey, profile.ProfileKey)
				}
				if profile.Description == "" {
					t.Errorf("profile %s missing description", tt.profileKey)
				}
			}
		})
	}
}

func TestGetDefaultProfile(t *testing.T) {
	profile := GetDefaultProfile()
	if profile.ProfileKey != ProfileKeyDefault {
		t.Errorf("expected default profile key, got %s", profile.ProfileKey)
	}
	if profile.Weights["code"] != 0.4 {
		t.Errorf("expected code weight 0.4, got %v", profile.Weights["code"])
	}
	if profile.Weights["documentation"] != 0.3 {
		t.Errorf("expected documentation weight 0.3, got %v", profile.Weights["documentation"])
	}
}

func TestAllProfilesHaveValidWeights(t *testing.T) {
	for key, profile := range WeightProfiles {
		t.Run(key, func(t *testing.T) {
			if len(profile.Weights) == 0 {
				t.Fatalf("%s: no weights defined", key)
			}
			for source, w := range profile.Weights {
				if w < 0 || w > 1 {
					t.Errorf("%s: weight for %s is %v, out of range [0, 1]", key, source, w)
				}
			}
			if _, ok := profile.Weights["code"]; !ok {
				t.Errorf("%s: missing weight for code source", key)
			}
		})
	}
}

func TestLoadProfileFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "custom.yaml")
		content := `profile_key: custom
description: Custom blend
weights:
  code: 0.5
  documentation: 0.5
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		profile, err := LoadProfileFile(path)
		if err != nil {
			t.Fatalf("LoadProfileFile() error = %v", err)
		}
		if profile.Weights["code"] != 0.5 {
			t.Errorf("expected code weight 0.5, got %v", profile.Weights["code"])
		}
	})

	t.Run("out of range weight", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		content := `profile_key: bad
weights:
  code: 1.5
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadProfileFile(path); err == nil {
			t.Error("expected error for out-of-range weight")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadProfileFile(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
