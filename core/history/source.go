package history

import (
	"github.com/kilianp07/stationrisk/core/factory"
)

// Sources maps source type names to their constructors.
var Sources = factory.NewRegistry[Source]()

func init() {
	_ = Sources.Register("csv", func(conf map[string]any) (Source, error) {
		var cfg CSVConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		if cfg.Path == "" {
			return nil, errMissingPath
		}
		return NewCSVFile(cfg.Path), nil
	})
}

// NewSource builds a source from its module configuration.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	return Sources.Create(cfg)
}
