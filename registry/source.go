package registry

import (
	"fmt"
	"strings"
)

// Named is implemented by file-like sources such as *os.File.
type Named interface {
	Name() string
}

// SourcePath returns the path of a source: the string itself, or the
// Name() of a file-like value.
func SourcePath(source any) (string, error) {
	switch s := source.(type) {
	case string:
		return s, nil
	case Named:
		return s.Name(), nil
	}
	return "", fmt.Errorf("source must be a path or have a Name() method, got %T", source)
}

// IdentifyExtension returns an identifier accepting paths that end with
// one of the given extensions.
func IdentifyExtension(exts ...string) IdentifierFunc {
	return func(_ Origin, path string, _ Options) bool {
		for _, ext := range exts {
			if strings.HasSuffix(path, ext) {
				return true
			}
		}
		return false
	}
}
