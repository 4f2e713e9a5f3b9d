package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-split-must-flow/internal/common"
	"github.com/Veraticus/the-split-must-flow/internal/engine"
	"github.com/Veraticus/the-split-must-flow/internal/features"
	"github.com/Veraticus/the-split-must-flow/internal/recommend"
	"github.com/Veraticus/the-split-must-flow/internal/validation"
)

// Viper keys.
const (
	KeyDatabasePath     = "database.path"
	KeyOutputPath       = "output.path"
	KeyMaxFeatures      = "engine.max_features"
	KeyTopParticipants  = "engine.top_participants"
	KeyDefaultK         = "engine.default_k"
	KeyDegeneratePolicy = "engine.degenerate_policy"
	KeyExplanation      = "engine.explanation"
	KeyNoHistory        = "engine.no_history"
)

// Settings is the resolved application configuration.
type Settings struct {
	DatabasePath     string `validate:"required"`
	OutputPath       string `validate:"required"`
	DegeneratePolicy string `validate:"oneof=unit reject"`
	Explanation      string
	NoHistory        string
	MaxFeatures      int `validate:"gt=0"`
	TopParticipants  int `validate:"gt=0"`
	DefaultK         int `validate:"gt=0"`
}

// Defaults returns the built-in settings. DatabasePath is left empty and
// resolved by Load.
func Defaults() Settings {
	return Settings{
		OutputPath:       "recommendations.json",
		DegeneratePolicy: string(features.DegenerateUnitScale),
		Explanation:      recommend.DefaultExplanation,
		NoHistory:        recommend.DefaultNoHistory,
		MaxFeatures:      features.DefaultMaxFeatures,
		TopParticipants:  recommend.DefaultTopParticipants,
		DefaultK:         engine.DefaultK,
	}
}

// Load reads settings from v, falling back to Defaults for unset keys.
// An empty database path means DefaultDatabasePath. Paths have ~ and
// environment variables expanded.
func Load(v *viper.Viper) (*Settings, error) {
	s := Defaults()

	if v.IsSet(KeyDatabasePath) {
		s.DatabasePath = v.GetString(KeyDatabasePath)
	}
	if v.IsSet(KeyOutputPath) {
		s.OutputPath = v.GetString(KeyOutputPath)
	}
	if v.IsSet(KeyMaxFeatures) {
		s.MaxFeatures = v.GetInt(KeyMaxFeatures)
	}
	if v.IsSet(KeyTopParticipants) {
		s.TopParticipants = v.GetInt(KeyTopParticipants)
	}
	if v.IsSet(KeyDefaultK) {
		s.DefaultK = v.GetInt(KeyDefaultK)
	}
	if v.IsSet(KeyDegeneratePolicy) {
		s.DegeneratePolicy = v.GetString(KeyDegeneratePolicy)
	}
	if v.IsSet(KeyExplanation) {
		s.Explanation = v.GetString(KeyExplanation)
	}
	if v.IsSet(KeyNoHistory) {
		s.NoHistory = v.GetString(KeyNoHistory)
	}

	if err := s.resolvePaths(); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for out-of-range values.
func (s *Settings) Validate() error {
	if verr := validation.ValidateStruct(s); verr != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, verr)
	}
	if s.Explanation != "" && !singlePlaceVerb(s.Explanation) {
		return fmt.Errorf("%w: %s must contain exactly one %%s for the place, got %q",
			common.ErrInvalidConfig, KeyExplanation, s.Explanation)
	}
	return nil
}

// singlePlaceVerb reports whether tmpl has exactly one formatting verb and it is %s.
// Escaped percent signs are allowed.
func singlePlaceVerb(tmpl string) bool {
	unescaped := strings.ReplaceAll(tmpl, "%%", "")
	return strings.Count(unescaped, "%") == 1 && strings.Count(unescaped, "%s") == 1
}

// EngineConfig converts the settings into an engine configuration.
func (s *Settings) EngineConfig() engine.Config {
	return engine.Config{
		Features: features.Options{
			MaxFeatures: s.MaxFeatures,
			Degenerate:  features.DegeneratePolicy(s.DegeneratePolicy),
		},
		Aggregate: recommend.Options{
			TopParticipants: s.TopParticipants,
			Explanation:     s.Explanation,
			NoHistory:       s.NoHistory,
		},
		DefaultK: s.DefaultK,
	}
}
