// Package rootarray converts between ROOT trees and Arrow records.
//
// It lists the trees of a ROOT file, streams selected branches of a tree
// into a columnar record applying entry ranges and row selections, and
// writes records back as trees. All ROOT file handling is delegated to
// go-hep's groot; files are opened and closed within each call.
package rootarray

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/VanDung-dev/tableio/selection"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

var treeClasses = map[string]bool{
	"TTree":    true,
	"TNtuple":  true,
	"TNtupleD": true,
}

// expand resolves a path that may be a glob pattern into the sorted list of
// matching files.
func expand(path string) ([]string, error) {
	if !strings.ContainsAny(path, "*?[") {
		return []string{path}, nil
	}
	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", path, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", path)
	}
	sort.Strings(matches)
	return matches, nil
}

// ListTrees returns the names of the trees in the top directory of the ROOT
// file at path, in key order, without duplicate cycles. For a glob
// pattern the first matching file is inspected.
func ListTrees(path string) ([]string, error) {
	files, err := expand(path)
	if err != nil {
		return nil, err
	}

	f, err := groot.Open(files[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", files[0], err)
	}
	defer f.Close()

	var names []string
	seen := make(map[string]bool)
	for _, k := range f.Keys() {
		if !treeClasses[k.ClassName()] || seen[k.Name()] {
			continue
		}
		seen[k.Name()] = true
		names = append(names, k.Name())
	}
	return names, nil
}

// ReadTree reads the named tree of the ROOT file(s) at path into a record.
// The caller owns the returned record.
func ReadTree(ctx context.Context, path, tree string, opts ReadOptions) (arrow.Record, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	files, err := expand(path)
	if err != nil {
		return nil, err
	}

	rd := &treeReader{ctx: ctx, tree: tree, opts: opts, mem: memory.DefaultAllocator}
	recs := make([]arrow.Record, 0, len(files))
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	for _, file := range files {
		rec, err := rd.readFile(file)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	rec, err := table.Concat(recs, rd.mem)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	filtered, err := selection.Apply(ctx, rec, opts.Selection)
	if err != nil {
		return nil, err
	}
	if opts.Branches == nil || opts.Selection == "" {
		return filtered, nil
	}
	defer filtered.Release()
	return table.Project(filtered, rd.columns(opts.Branches))
}

type readVar struct {
	column string
	rvar   rtree.ReadVar
	dtype  arrow.DataType
}

type treeReader struct {
	ctx    context.Context
	tree   string
	opts   ReadOptions
	mem    memory.Allocator
	offset int64

	// branch name -> column name, for projecting after a selection.
	names map[string]string
}

func (rd *treeReader) columns(branches []string) []string {
	out := make([]string, len(branches))
	for i, b := range branches {
		out[i] = rd.names[b]
	}
	return out
}

func columnName(rv rtree.ReadVar) string {
	if rv.Leaf == "" || rv.Leaf == rv.Name {
		return rv.Name
	}
	return rv.Name + "." + rv.Leaf
}

// chooseVars picks the read variables for the requested branches. With no
// explicit list every supported branch is read; with a selection every
// supported branch is read as well so the expression can refer to it.
func (rd *treeReader) chooseVars(t rtree.Tree) ([]readVar, error) {
	all := rtree.NewReadVars(t)
	byName := make(map[string]int, len(all))
	for i, rv := range all {
		byName[rv.Name] = i
		byName[columnName(rv)] = i
	}

	rd.names = make(map[string]string)
	wanted := make(map[int]bool)
	var order []int
	for _, b := range rd.opts.Branches {
		i, ok := byName[b]
		if !ok {
			return nil, fmt.Errorf("branch %q not found in tree %q", b, rd.tree)
		}
		if _, err := arrowType(reflect.TypeOf(all[i].Value).Elem()); err != nil {
			return nil, &tableerr.UnsupportedColumnError{Column: b, Type: reflect.TypeOf(all[i].Value).Elem().String()}
		}
		rd.names[b] = columnName(all[i])
		if !wanted[i] {
			wanted[i] = true
			order = append(order, i)
		}
	}

	if rd.opts.Branches == nil || rd.opts.Selection != "" {
		for i := range all {
			if !wanted[i] {
				order = append(order, i)
			}
		}
	}

	vars := make([]readVar, 0, len(order))
	for _, i := range order {
		rv := all[i]
		dt, err := arrowType(reflect.TypeOf(rv.Value).Elem())
		if err != nil {
			rd.opts.Logger.Debug("skipping branch", "tree", rd.tree, "branch", rv.Name, "reason", err)
			continue
		}
		vars = append(vars, readVar{column: columnName(rv), rvar: rv, dtype: dt})
	}
	return vars, nil
}

// readFile reads the entries of one file that fall inside the global
// [Start, Stop) range, continuing the entry numbering of previous files.
func (rd *treeReader) readFile(path string) (arrow.Record, error) {
	if err := rd.ctx.Err(); err != nil {
		return nil, err
	}
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	obj, err := riofs.Dir(f).Get(rd.tree)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree %q from %s: %w", rd.tree, path, err)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("object %q in %s is a %s, not a tree", rd.tree, path, obj.Class())
	}

	vars, err := rd.chooseVars(t)
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(vars))
	rvars := make([]rtree.ReadVar, len(vars))
	for i, v := range vars {
		fields[i] = arrow.Field{Name: v.column, Type: v.dtype}
		rvars[i] = v.rvar
	}
	md := arrow.NewMetadata([]string{"tree", "title"}, []string{t.Name(), t.Title()})
	schema := arrow.NewSchema(fields, &md)

	b := array.NewRecordBuilder(rd.mem, schema)
	defer b.Release()

	n := t.Entries()
	beg, end := rd.localRange(n)
	rd.offset += n

	if beg < end && len(rvars) > 0 {
		offset := rd.offset - n
		r, err := rtree.NewReader(t, rvars, rtree.WithRange(beg, end))
		if err != nil {
			return nil, fmt.Errorf("failed to create reader for tree %q: %w", rd.tree, err)
		}
		defer r.Close()

		err = r.Read(func(rctx rtree.RCtx) error {
			if rctx.Entry%1024 == 0 {
				if err := rd.ctx.Err(); err != nil {
					return err
				}
			}
			if (offset+rctx.Entry-rd.opts.Start)%rd.opts.Step != 0 {
				return nil
			}
			for i := range rvars {
				v := reflect.ValueOf(rvars[i].Value).Elem()
				if err := appendValue(b.Field(i), v); err != nil {
					return fmt.Errorf("branch %q: %w", vars[i].column, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read tree %q from %s: %w", rd.tree, path, err)
		}
	}

	return b.NewRecord(), nil
}

// localRange converts the global entry range into the entry range of a
// file holding n entries that starts at rd.offset.
func (rd *treeReader) localRange(n int64) (int64, int64) {
	beg := rd.opts.Start - rd.offset
	if beg < 0 {
		beg = 0
	}
	end := n
	if rd.opts.Stop >= 0 && rd.opts.Stop-rd.offset < end {
		end = rd.opts.Stop - rd.offset
	}
	if beg > n {
		beg = n
	}
	return beg, end
}
