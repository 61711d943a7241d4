package main

import (
	"errors"
	"io/fs"

	"github.com/mash-protocol/hashcfg/cmd/hashcfg/commands"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// openForShell reads file, or starts from an empty tree when the file
// does not exist yet.
func openForShell(file, format string) (*hash.Hash, error) {
	if file == "" {
		return hash.New(), nil
	}
	tree, err := commands.ReadTree(file, format)
	if errors.Is(err, fs.ErrNotExist) {
		return hash.New(), nil
	}
	return tree, err
}
