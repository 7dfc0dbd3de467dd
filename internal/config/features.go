package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FeatureKind distinguishes counted limits from boolean capability flags.
type FeatureKind string

const (
	FeatureKindCounter FeatureKind = "counter"
	FeatureKindFlag    FeatureKind = "flag"
)

type FeatureDefinition struct {
	Code         string      `mapstructure:"code"`
	Kind         FeatureKind `mapstructure:"kind"`
	ResourceType string      `mapstructure:"resourceType"`
}

// FeaturesConfig is the catalog of feature codes the entitlement engine
// understands, plus which flag feature gates data exports.
type FeaturesConfig struct {
	Catalog       []FeatureDefinition `mapstructure:"catalog"`
	ExportFeature string              `mapstructure:"exportFeature"`
}

func DefaultFeaturesConfig() FeaturesConfig {
	return FeaturesConfig{
		Catalog: []FeatureDefinition{
			{Code: "max_properties", Kind: FeatureKindCounter, ResourceType: "property"},
			{Code: "max_customers", Kind: FeatureKindCounter, ResourceType: "customer"},
			{Code: "max_agents", Kind: FeatureKindCounter, ResourceType: "agent"},
			{Code: "max_requests", Kind: FeatureKindCounter, ResourceType: "request"},
			{Code: "data_export", Kind: FeatureKindFlag},
		},
		ExportFeature: "data_export",
	}
}

// FeaturesConfigHolder exposes the current catalog and hot-reloads it when
// features.yml changes on disk.
type FeaturesConfigHolder struct {
	current atomic.Value // holds FeaturesConfig
}

func NewFeaturesConfigHolder() (*FeaturesConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("features")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/estatelane/config")
	v.AddConfigPath("/etc/estatelane")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ESTATELANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFeaturesConfig()
		v.SetDefault("features.catalog", defaults.Catalog)
		v.SetDefault("features.exportFeature", defaults.ExportFeature)
	}

	var cfg FeaturesConfig
	if err := v.UnmarshalKey("features", &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Catalog) == 0 {
		cfg = DefaultFeaturesConfig()
	}
	if err := validateFeaturesConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FeaturesConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeaturesConfig
		if err := v.UnmarshalKey("features", &updated); err != nil {
			log.Printf("[features-config] reload failed: %v", err)
			return
		}
		if err := validateFeaturesConfig(updated); err != nil {
			log.Printf("[features-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[features-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FeaturesConfigHolder) Get() FeaturesConfig {
	return h.current.Load().(FeaturesConfig)
}

// Definition returns the catalog entry for a feature code, if known.
func (h *FeaturesConfigHolder) Definition(code string) (FeatureDefinition, bool) {
	for _, def := range h.Get().Catalog {
		if def.Code == code {
			return def, true
		}
	}
	return FeatureDefinition{}, false
}

// ExportFeature returns the flag feature code gating data exports.
func (h *FeaturesConfigHolder) ExportFeature() string {
	return h.Get().ExportFeature
}

func validateFeaturesConfig(cfg FeaturesConfig) error {
	if len(cfg.Catalog) == 0 {
		return errors.New("features.catalog cannot be empty")
	}
	for _, def := range cfg.Catalog {
		if strings.TrimSpace(def.Code) == "" {
			return errors.New("features.catalog entries require a code")
		}
		switch def.Kind {
		case FeatureKindCounter:
			if strings.TrimSpace(def.ResourceType) == "" {
				return errors.New("counter features require a resourceType")
			}
		case FeatureKindFlag:
		default:
			return errors.New("features.catalog kind must be counter or flag")
		}
	}
	return nil
}
