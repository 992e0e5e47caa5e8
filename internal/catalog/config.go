package catalog

import (
	"github.com/operator-framework/hasco/pkg/twophase"
)

// LoadConfigFile overlays the settings in path on base. Settings missing
// from the file keep their value in base.
func LoadConfigFile(path string, base twophase.Config) (twophase.Config, error) {
	cfg := base
	if err := decodeFile(path, &cfg); err != nil {
		return base, err
	}
	return cfg, cfg.Validate()
}
