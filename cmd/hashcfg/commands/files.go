// Package commands implements the hashcfg CLI commands.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/text"
	"github.com/mash-protocol/hashcfg/pkg/wire"
)

// File formats understood by the commands.
const (
	FormatYAML   = "yaml"
	FormatBinary = "binary"
	FormatCBOR   = "cbor"
)

// ResolveFormat returns the explicit format name, or the format implied by
// the file extension. Unknown extensions and stdin ("-") default to YAML.
func ResolveFormat(name, path string) (string, error) {
	switch strings.ToLower(name) {
	case "":
	case "yaml", "yml", "text":
		return FormatYAML, nil
	case "binary", "bin":
		return FormatBinary, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown format %q (use yaml, binary, cbor)", name)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".hbin":
		return FormatBinary, nil
	case ".cbor":
		return FormatCBOR, nil
	default:
		return FormatYAML, nil
	}
}

// ReadTree loads a tree from path ("-" for stdin) in the given format.
func ReadTree(path, format string) (*hash.Hash, error) {
	format, err := ResolveFormat(format, path)
	if err != nil {
		return nil, err
	}
	var data []byte
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return DecodeTree(data, format)
}

// DecodeTree parses data in the given format.
func DecodeTree(data []byte, format string) (*hash.Hash, error) {
	switch format {
	case FormatBinary:
		return wire.Unmarshal(data)
	case FormatCBOR:
		return wire.UnmarshalCBOR(data)
	default:
		return text.Unmarshal(data)
	}
}

// EncodeTree renders h in the given format.
func EncodeTree(h *hash.Hash, format string) ([]byte, error) {
	switch format {
	case FormatBinary:
		return wire.Marshal(h)
	case FormatCBOR:
		return wire.MarshalCBOR(h)
	default:
		return text.Marshal(h)
	}
}

// WriteTree stores h at path ("-" for stdout) in the given format.
func WriteTree(path, format string, h *hash.Hash) error {
	format, err := ResolveFormat(format, path)
	if err != nil {
		return err
	}
	data, err := EncodeTree(h, format)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
