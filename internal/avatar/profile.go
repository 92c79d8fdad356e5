package avatar

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile maps emotion names to the parameter batch that expresses them
type Profile map[Emotion][]Param

// DefaultProfile returns the built-in emotion table
func DefaultProfile() Profile {
	return Profile{
		EmotionNeutral: {
			{Name: "ParamEyeLOpen", Value: 1},
			{Name: "ParamEyeROpen", Value: 1},
			{Name: "ParamBrowLY", Value: 0},
			{Name: "ParamBrowRY", Value: 0},
			{Name: "ParamBrowLX", Value: 0},
			{Name: "ParamBrowRX", Value: 0},
			{Name: "ParamBrowLAngle", Value: 0},
			{Name: "ParamBrowRAngle", Value: 0},
			{Name: "ParamMouthForm", Value: 0},
		},
		EmotionHappy: {
			{Name: "ParamEyeLOpen", Value: 1},
			{Name: "ParamEyeROpen", Value: 1},
			{Name: "ParamBrowLY", Value: -0.3},
			{Name: "ParamBrowRY", Value: -0.3},
			{Name: "ParamMouthForm", Value: 0.5},
		},
		EmotionSad: {
			{Name: "ParamEyeLOpen", Value: 0.7},
			{Name: "ParamEyeROpen", Value: 0.7},
			{Name: "ParamBrowLY", Value: 0.3},
			{Name: "ParamBrowRY", Value: 0.3},
			{Name: "ParamBrowLAngle", Value: 0.2},
			{Name: "ParamBrowRAngle", Value: -0.2},
			{Name: "ParamMouthForm", Value: -0.3},
		},
		EmotionAngry: {
			{Name: "ParamEyeLOpen", Value: 0.8},
			{Name: "ParamEyeROpen", Value: 0.8},
			{Name: "ParamBrowLY", Value: 0.4},
			{Name: "ParamBrowRY", Value: 0.4},
			{Name: "ParamBrowLAngle", Value: -0.3},
			{Name: "ParamBrowRAngle", Value: 0.3},
			{Name: "ParamMouthForm", Value: -0.2},
		},
		EmotionSurprised: {
			{Name: "ParamEyeLOpen", Value: 1.5},
			{Name: "ParamEyeROpen", Value: 1.5},
			{Name: "ParamBrowLY", Value: -0.5},
			{Name: "ParamBrowRY", Value: -0.5},
			{Name: "ParamMouthForm", Value: 0.3},
		},
	}
}

// Params returns the batch for name, falling back to neutral for unknown
// emotions. The returned slice is a copy.
func (p Profile) Params(name string) []Param {
	params, ok := p[Emotion(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		params = p[EmotionNeutral]
	}
	return append([]Param(nil), params...)
}

// profileFile is the on-disk layout:
//
//	emotions:
//	  happy:
//	    ParamMouthForm: 0.8
type profileFile struct {
	Emotions map[string]map[string]float64 `yaml:"emotions"`
}

// LoadProfile reads a YAML profile and merges it over the built-in table.
// An empty path returns the built-in table. Emotions listed in the file
// replace the built-in entry entirely.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read emotion profile: %w", err)
	}
	return mergeProfile(profile, data)
}

func mergeProfile(profile Profile, data []byte) (Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse emotion profile: %w", err)
	}

	for name, values := range file.Emotions {
		if name == "" {
			return nil, errors.New("emotion profile has an unnamed entry")
		}
		params := make([]Param, 0, len(values))
		for param, value := range values {
			params = append(params, Param{Name: param, Value: value})
		}
		// Map order is random; keep updates deterministic
		sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
		profile[Emotion(strings.ToLower(name))] = params
	}

	if len(profile[EmotionNeutral]) == 0 {
		return nil, fmt.Errorf("emotion profile must define %q", EmotionNeutral)
	}
	return profile, nil
}
