// Package factory provides a small generic registry used to instantiate
// pluggable modules from configuration. A module is selected by a type string
// and configured through a map of raw settings; factories decode the settings
// into typed structs and return the concrete implementation. Metrics sinks
// are the main consumer: the config file lists sink blocks by type and the
// registry turns each block into a running sink.
//
// Example usage:
//
//	reg := factory.NewRegistry[io.Reader]()
//	reg.Register("file", func(conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(c.Path)
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "foo"}})
package factory
