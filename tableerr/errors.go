// Package tableerr defines the typed errors returned by the table I/O
// packages. Callers match them with errors.As / errors.Is.
package tableerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUpdateUnsupported is returned when a ROOT write asks to append to an
// existing file.
var ErrUpdateUnsupported = errors.New("update mode is not supported for existing ROOT files")

// DataNotFoundError indicates that a source contains no readable data set,
// e.g. a ROOT file without any tree.
type DataNotFoundError struct {
	Source string
	What   string
}

func (e *DataNotFoundError) Error() string {
	what := e.What
	if what == "" {
		what = "data"
	}
	return fmt.Sprintf("no %s found in %s", what, e.Source)
}

// AmbiguousTreeError indicates that a source holds several trees and the
// caller did not choose one.
type AmbiguousTreeError struct {
	Source string
	Trees  []string
}

func (e *AmbiguousTreeError) Error() string {
	quoted := make([]string, len(e.Trees))
	for i, t := range e.Trees {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf("multiple trees found in %s, please select one via the treename option, e.g. treename=%q. Available trees are: %s.",
		e.Source, "events", strings.Join(quoted, ", "))
}

// FormatNotFoundError indicates that no reader or writer is registered for
// a (format, kind) pair.
type FormatNotFoundError struct {
	Op     string
	Format string
	Kind   string
}

func (e *FormatNotFoundError) Error() string {
	return fmt.Sprintf("no %s registered for format %q and kind %s", e.Op, e.Format, e.Kind)
}

// FormatNotIdentifiedError indicates that format auto-detection matched
// zero or several formats.
type FormatNotIdentifiedError struct {
	Op         string
	Path       string
	Candidates []string
}

func (e *FormatNotIdentifiedError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s: format could not be identified for %s, please specify a format", e.Op, e.Path)
	}
	return fmt.Sprintf("%s: format is ambiguous for %s (candidates: %s), please specify a format",
		e.Op, e.Path, strings.Join(e.Candidates, ", "))
}

// RegistrationConflictError is returned when a reader, writer or identifier
// is already registered for a (format, kind) pair.
type RegistrationConflictError struct {
	Role   string
	Format string
	Kind   string
}

func (e *RegistrationConflictError) Error() string {
	return fmt.Sprintf("%s for format %q and kind %s is already registered", e.Role, e.Format, e.Kind)
}

// UnsupportedColumnError indicates a column whose type cannot be stored in
// the target format.
type UnsupportedColumnError struct {
	Column string
	Type   string
}

func (e *UnsupportedColumnError) Error() string {
	return fmt.Sprintf("column %q has unsupported type %s", e.Column, e.Type)
}

// UnknownOptionError indicates an option key the callee does not accept.
type UnknownOptionError struct {
	Op  string
	Key string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("%s: unexpected option %q", e.Op, e.Key)
}

// InvalidOptionError indicates an option whose value has the wrong type or
// range.
type InvalidOptionError struct {
	Key string
	Err error
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q: %v", e.Key, e.Err)
}

func (e *InvalidOptionError) Unwrap() error {
	return e.Err
}
