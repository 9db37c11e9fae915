// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Historical sources and metrics sinks are both built this way:
//
//	reg := factory.NewRegistry[history.Source]()
//	reg.Register("csv", func(conf map[string]any) (history.Source, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return history.NewCSVFile(c.Path), nil
//	})
//	src, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": "fleet.csv"}})
package factory
