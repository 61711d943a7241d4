// Package schema describes the expected shape of a configuration hash.
//
// A Schema is an ordered tree of Elements. Leaves declare a value kind with
// its default, options, bounds and size limits; nodes group children;
// choices and lists select among child nodes; tables are vectors of hashes
// whose rows follow a row schema.
//
// Elements are declared with fluent builders. Every setter returns the
// builder and Commit is the only call that can fail:
//
//	s := schema.New("Motor")
//	err := schema.Float64Element(s).Key("speed").
//		Unit("rpm").
//		MinInc(0).MaxInc(3000).
//		DefaultValue(1500).
//		Reconfigurable().
//		Commit()
//
// Committing a second time at the same path overwrites the element. An
// overwrite may change defaults, bounds, options, access and documentation,
// but never the kind or node type, and never relaxes a mandatory element.
// Overwrite(s).Key(path) changes selected properties of an existing
// element; Restrictions on the element can forbid individual changes.
//
// Schemas convert to a descriptor hash with ToHash and back with FromHash,
// and load from YAML descriptor files with LoadYAML.
package schema
