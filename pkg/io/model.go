package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
)

// Format identifies a model file format.
type Format string

const (
	FormatAUT  Format = "aut"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for files whose extension names no known
// model format.
var ErrUnknownFormat = errors.New(errors.ErrCodeUnsupported, "unknown model format")

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aut":
		return FormatAUT, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// ReadModel decodes a model in format f from r.
func ReadModel(r io.Reader, f Format) (graph.Model, error) {
	switch f {
	case FormatAUT:
		return ReadAUT(r)
	case FormatJSON:
		return ReadJSON(r)
	}
	return graph.Model{}, fmt.Errorf("format %q: %w", f, ErrUnknownFormat)
}

// ReadJSON decodes a JSON model from r and validates it.
func ReadJSON(r io.Reader) (graph.Model, error) {
	var m graph.Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return graph.Model{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	if err := m.Validate(); err != nil {
		return graph.Model{}, err
	}
	return m, nil
}

// WriteJSON encodes m as indented JSON.
func WriteJSON(w io.Writer, m graph.Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ImportModel reads the model file at path, picking the decoder from its
// extension.
func ImportModel(path string) (graph.Model, error) {
	if err := errors.ValidateFilePath(path); err != nil {
		return graph.Model{}, err
	}
	f, err := FormatOf(path)
	if err != nil {
		return graph.Model{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return graph.Model{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return graph.Model{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	m, err := ReadModel(file, f)
	if err != nil {
		return graph.Model{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ExportModel writes m to path in the format implied by its extension.
func ExportModel(m graph.Model, path string) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		if f == FormatAUT {
			return WriteAUT(w, m)
		}
		return WriteJSON(w, m)
	})
}

// ImportLayout reads a layout snapshot from path.
func ImportLayout(path string) (graph.Layout, error) {
	if err := errors.ValidateFilePath(path); err != nil {
		return graph.Layout{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return graph.Layout{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return graph.Layout{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	l, err := graph.ReadLayout(f)
	if err != nil {
		return graph.Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s", path)
	}
	return l, nil
}

// ExportLayout writes a layout snapshot to path.
func ExportLayout(l graph.Layout, path string) error {
	return writeFile(path, func(w io.Writer) error { return graph.WriteLayout(w, l) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
