// Package hash implements the attributed tree container used for every
// configuration, property set and command argument.
//
// A Hash is an ordered mapping from keys to nodes. Each node holds a typed
// Value and its own ordered attributes. Keys may be dotted paths ("a.b.c");
// writes create the intermediate hashes and reads fail with
// errs.PathNotFound when a segment is missing. A segment of the form
// "rows[2]" addresses one element of a vector of hashes.
//
// Values form a closed set of kinds (see Kind). Extraction is exact:
//
//	h := hash.New()
//	_ = h.Set("motor.speed", hash.Float64(12.5))
//	speed, err := hash.Lookup[float64](h, "motor.speed") // ok
//	_, err = hash.Lookup[float32](h, "motor.speed")      // TypeMismatch
package hash
