// Package format registers every built-in table format.
package format

import (
	"github.com/VanDung-dev/tableio/format/avroformat"
	"github.com/VanDung-dev/tableio/format/ipcformat"
	"github.com/VanDung-dev/tableio/format/parquetformat"
	"github.com/VanDung-dev/tableio/format/rootformat"
	"github.com/VanDung-dev/tableio/registry"
)

// RegisterAll registers the root, arrow, parquet and avro formats in reg.
// rootOpts configure the ROOT adapter.
func RegisterAll(reg *registry.Registry, rootOpts ...rootformat.Option) error {
	if err := rootformat.Register(reg, rootOpts...); err != nil {
		return err
	}
	if err := ipcformat.Register(reg); err != nil {
		return err
	}
	if err := parquetformat.Register(reg); err != nil {
		return err
	}
	return avroformat.Register(reg)
}

// Names returns the names of the built-in formats.
func Names() []string {
	return []string{rootformat.Name, ipcformat.Name, parquetformat.Name, avroformat.Name}
}

// Extension returns the file extension written for a built-in format.
func Extension(name string) (string, bool) {
	switch name {
	case rootformat.Name:
		return rootformat.Extension, true
	case ipcformat.Name:
		return ipcformat.Extensions[0], true
	case parquetformat.Name:
		return parquetformat.Extension, true
	case avroformat.Name:
		return avroformat.Extension, true
	}
	return "", false
}
