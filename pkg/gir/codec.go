package gir

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a unit file.
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ErrUnsupportedFormat is returned for files that are not unit files.
var ErrUnsupportedFormat = errors.New("unsupported unit file format")

var suffixes = []struct {
	suffix string
	format Format
}{
	{".gir.yaml", FormatYAML},
	{".gir.yml", FormatYAML},
	{".gir.json", FormatJSON},
	{".gir.msgpack", FormatMsgpack},
}

// DetectFormat returns the unit file format implied by path's suffix.
func DetectFormat(path string) (Format, bool) {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// IsUnitFile reports whether path names a unit file.
func IsUnitFile(path string) bool {
	_, ok := DetectFormat(path)
	return ok
}

// TrimUnitSuffix strips the unit file suffix from path.
func TrimUnitSuffix(path string) string {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return path[:len(path)-len(s.suffix)]
		}
	}
	return path
}

// LoadUnit reads a unit file. The unit's Path defaults to the file path when
// the file does not carry one.
func LoadUnit(path string) (*Unit, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening unit %s: %w", path, err)
	}
	defer f.Close()

	unit, err := DecodeUnit(f, format)
	if err != nil {
		return nil, fmt.Errorf("decoding unit %s: %w", path, err)
	}
	if unit.Path == "" {
		unit.Path = path
	}
	return unit, nil
}

// DecodeUnit decodes a unit from r.
func DecodeUnit(r io.Reader, format Format) (*Unit, error) {
	var unit Unit
	var err error

	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&unit)
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&unit)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&unit)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &unit, nil
}

// EncodeUnit writes unit to w.
func EncodeUnit(w io.Writer, unit *Unit, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(unit); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(unit)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(unit)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// SaveUnit writes unit to path in the format implied by its suffix.
func SaveUnit(path string, unit *Unit) error {
	format, ok := DetectFormat(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating unit %s: %w", path, err)
	}
	if err := EncodeUnit(f, unit, format); err != nil {
		f.Close()
		return fmt.Errorf("encoding unit %s: %w", path, err)
	}
	return f.Close()
}
