package service

import (
	"github.com/controla/backend/internal/config"
	"github.com/controla/backend/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	EditionCommunity = "community"
	EditionBusiness  = "business"

	communityMaxInstances = 3
)

var premiumFeatures = []string{
	model.FeatureWorkflowErrorAlert,
	model.FeatureInvalidAPIKeyAlert,
}

// License answers tier questions: instance ceiling and feature flags.
type License interface {
	MaxInstances() int
	IsFeatureEnabled(key string) bool
	Info() model.LicenseInfo
}

// StaticLicense is fixed for the lifetime of the process.
type StaticLicense struct {
	edition      string
	maxInstances int
	features     map[string]bool
}

// NewStaticLicense builds the license from config. Community is capped at
// three instances with no premium features; business is unlimited unless
// LICENSE_MAX_INSTANCES says otherwise, and gets every feature unless
// LICENSE_FEATURES narrows the set.
func NewStaticLicense(cfg config.LicenseConfig) *StaticLicense {
	switch cfg.Edition {
	case EditionBusiness:
		ceiling := model.UnlimitedInstances
		if cfg.MaxInstances > 0 {
			ceiling = cfg.MaxInstances
		}
		keys := cfg.Features
		if len(keys) == 0 {
			keys = premiumFeatures
		}
		features := make(map[string]bool, len(keys))
		for _, key := range keys {
			features[key] = true
		}
		return &StaticLicense{edition: EditionBusiness, maxInstances: ceiling, features: features}
	case EditionCommunity, "":
	default:
		log.Warn().Str("edition", cfg.Edition).Msg("Unknown license edition, falling back to community")
	}
	return &StaticLicense{
		edition:      EditionCommunity,
		maxInstances: communityMaxInstances,
		features:     map[string]bool{},
	}
}

func (l *StaticLicense) MaxInstances() int {
	return l.maxInstances
}

func (l *StaticLicense) IsFeatureEnabled(key string) bool {
	return l.features[key]
}

func (l *StaticLicense) Info() model.LicenseInfo {
	features := make(map[string]bool, len(premiumFeatures))
	for _, key := range premiumFeatures {
		features[key] = l.features[key]
	}
	for key, on := range l.features {
		features[key] = on
	}
	return model.LicenseInfo{
		Edition:      l.edition,
		MaxInstances: l.maxInstances,
		Features:     features,
	}
}
