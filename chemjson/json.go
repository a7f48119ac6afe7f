/*
 * json.go, part of gocage.
 *
 * Copyright 2024 The gocage authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package chemjson

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	chem "github.com/gocage/gocage"
	v3 "github.com/gocage/gocage/v3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrClassConflict is returned when two loaders are registered
	// under the same class name.
	ErrClassConflict = errors.New("class already registered")

	// ErrUnknownClass is returned when a record's class has no loader.
	ErrUnknownClass = errors.New("unknown class")
)

// Record is a ready-to-serialize container for a molecule and the
// attributes of the type built on it.
type Record struct {
	Class      string
	Atoms      []chem.Atom
	Bonds      []chem.Bond
	Conformers [][]float64                 `json:",omitempty"` //each one is Natoms*3, row major
	Attrs      map[string]json.RawMessage `json:",omitempty"`
}

// Attr unmarshals the attribute name into v. It returns false
// if the record doesn't have the attribute.
func (R *Record) Attr(name string, v any) (bool, error) {
	raw, ok := R.Attrs[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, newError(ErrIllFormatted, R.Class, "Record.Attr", fmt.Errorf("attribute %s: %w", name, err))
	}
	return true, nil
}

// Dumper is implemented by the types that can be written with Dump.
type Dumper interface {
	Class() string
	Molecule() *chem.Molecule
	Attrs() (map[string]any, error)
}

// LoaderFunc rebuilds a value from its record.
type LoaderFunc func(rec *Record) (any, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]LoaderFunc{}
)

// Register makes Load and Decode use loader for records of the
// given class. A class can only be registered once.
func Register(class string, loader LoaderFunc) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[class]; ok {
		return newError(ErrClassConflict, class, "Register", nil)
	}
	registry[class] = loader
	return nil
}

// MustRegister is like Register, but panics on error. It is meant to be
// called from init functions.
func MustRegister(class string, loader LoaderFunc) {
	if err := Register(class, loader); err != nil {
		panic(err.Error())
	}
}

// Classes returns the registered class names, sorted.
func Classes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ret := make([]string, 0, len(registry))
	for k := range registry {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func loader(class string) (LoaderFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[class]
	return l, ok
}

// NewRecord builds a record of the given class from mol.
func NewRecord(class string, mol *chem.Molecule) *Record {
	rec := &Record{Class: class}
	if mol == nil {
		return rec
	}
	for _, a := range mol.Atoms() {
		rec.Atoms = append(rec.Atoms, *a)
	}
	for _, b := range mol.Bonds() {
		rec.Bonds = append(rec.Bonds, *b)
	}
	for i := 0; i < mol.NConformers(); i++ {
		rec.Conformers = append(rec.Conformers, mol.PositionMatrix(i).RawMatrix().Data)
	}
	return rec
}

// ToRecord builds the record for d, including only the named attributes,
// or all of them if none is named.
func ToRecord(d Dumper, include ...string) (*Record, error) {
	rec := NewRecord(d.Class(), d.Molecule())
	attrs, err := d.Attrs()
	if err != nil {
		return nil, newError(ErrIllFormatted, d.Class(), "ToRecord", err)
	}
	if len(include) > 0 {
		sel := make(map[string]any, len(include))
		for _, name := range include {
			v, ok := attrs[name]
			if !ok {
				return nil, newError(ErrIllFormatted, d.Class(), "ToRecord", fmt.Errorf("no attribute %q", name))
			}
			sel[name] = v
		}
		attrs = sel
	}
	if len(attrs) > 0 {
		rec.Attrs = make(map[string]json.RawMessage, len(attrs))
	}
	for k, v := range attrs {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, newError(ErrIllFormatted, d.Class(), "ToRecord", fmt.Errorf("attribute %s: %w", k, err))
		}
		rec.Attrs[k] = raw
	}
	return rec, nil
}

// MoleculeFromRecord rebuilds the molecule in a record.
func MoleculeFromRecord(rec *Record) (*chem.Molecule, error) {
	atoms := make([]*chem.Atom, len(rec.Atoms))
	for i := range rec.Atoms {
		atoms[i] = &rec.Atoms[i]
	}
	bonds := make([]*chem.Bond, len(rec.Bonds))
	for i := range rec.Bonds {
		bonds[i] = &rec.Bonds[i]
	}
	confs := make([]*v3.Matrix, 0, len(rec.Conformers))
	for i, c := range rec.Conformers {
		m, err := v3.NewMatrix(c)
		if err != nil {
			return nil, newError(ErrIllFormatted, rec.Class, "MoleculeFromRecord", fmt.Errorf("conformer %d: %w", i, err))
		}
		confs = append(confs, m)
	}
	mol, err := chem.NewMolecule(atoms, bonds, confs...)
	if err != nil {
		return nil, newError(ErrIllFormatted, rec.Class, "MoleculeFromRecord", err)
	}
	return mol, nil
}

// Encode writes the record of d to out.
func Encode(out io.Writer, d Dumper, include ...string) error {
	rec, err := ToRecord(d, include...)
	if err != nil {
		return errDecorate(err, "Encode")
	}
	enc := json.NewEncoder(out)
	if err := enc.Encode(rec); err != nil {
		return newError(ErrIllFormatted, d.Class(), "Encode", err)
	}
	return nil
}

// DecodeRecord reads one record from in.
func DecodeRecord(in io.Reader) (*Record, error) {
	rec := new(Record)
	if err := json.NewDecoder(in).Decode(rec); err != nil {
		return nil, newError(ErrIllFormatted, "", "DecodeRecord", err)
	}
	return rec, nil
}

// Decode reads one record from in and rebuilds it with the loader
// registered for its class.
func Decode(in io.Reader) (any, error) {
	rec, err := DecodeRecord(in)
	if err != nil {
		return nil, errDecorate(err, "Decode")
	}
	return FromRecord(rec)
}

// FromRecord rebuilds the value in rec with the loader registered for
// its class. Unregistered classes are an error.
func FromRecord(rec *Record) (any, error) {
	l, ok := loader(rec.Class)
	if !ok {
		return nil, newError(ErrUnknownClass, rec.Class, "FromRecord", nil)
	}
	v, err := l(rec)
	if err != nil {
		return nil, errDecorate(err, "FromRecord")
	}
	return v, nil
}

// Dump writes the record of d, with the attributes named in include (all
// if none is given) to the file path.
func Dump(path string, d Dumper, include ...string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := compressor(path, f)
	if err != nil {
		f.Close()
		return err
	}
	if err := Encode(w, d, include...); err != nil {
		w.Close()
		f.Close()
		return errDecorate(err, "Dump")
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads the file path, written by Dump, and returns the value
// rebuilt by the loader of its class.
func Load(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := decompressor(path, bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	v, err := Decode(r)
	return v, errDecorate(err, "Load")
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func compressor(path string, out io.Writer) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case strings.HasSuffix(path, ".gz"):
		return gzip.NewWriter(out), nil
	}
	return nopCloser{out}, nil
}

// *zstd.Decoder's Close doesn't return an error.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func decompressor(path string, in io.Reader) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		r, err := zstd.NewReader(in)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{r}, nil
	case strings.HasSuffix(path, ".gz"):
		return gzip.NewReader(in)
	}
	return io.NopCloser(in), nil
}

// Mol wraps a plain molecule so it can be dumped, with the class
// "Molecule" and no attributes.
type Mol struct {
	M *chem.Molecule
}

func (M Mol) Class() string                  { return "Molecule" }
func (M Mol) Molecule() *chem.Molecule       { return M.M }
func (M Mol) Attrs() (map[string]any, error) { return nil, nil }

func init() {
	MustRegister("Molecule", func(rec *Record) (any, error) {
		return MoleculeFromRecord(rec)
	})
}
