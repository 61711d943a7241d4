// Package validate merges a user configuration with a schema.
//
// A pass walks the schema and the user hash side by side. Supplied values
// are checked for kind, access mode, lifecycle state, options, bounds and
// sizes; absent elements are reported when mandatory and otherwise filled
// from their defaults. The result is a new hash: the user input and the
// schema are never modified.
//
//	v := validate.New(validate.DefaultRules())
//	cfg, err := v.Validate(s, user, "OFF")
//
// Errors are *errs.Error values located at the dotted path of the offending
// element. With Rules.CollectAll set, every violation of the pass is
// returned as an errs.List in traversal order.
//
// Each pass emits a RunStarted and a RunFinished event plus one decision
// per path to Rules.Logger.
package validate
