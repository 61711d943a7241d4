// Package text renders a hash.Hash as human-editable YAML and parses it back.
//
// Every value carries its kind as a local tag, so that a document written by
// Marshal decodes to an identical tree:
//
//	motor:
//	  speed: !float64 12.5
//	  limits: !vector_int32 [0, 100]
//	voltage: !attributed
//	  attrs:
//	    unit: !string V
//	  value: !float64 3.5
//
// Nested hashes are plain mappings. A node with attributes is wrapped in an
// !attributed mapping holding exactly attrs and value, so attributes never
// look like child keys.
//
// Hand-written documents may omit tags. Untagged scalars are inferred: YAML
// integers become INT32 (INT64 or UINT64 when out of range), floats FLOAT64,
// null NONE. Untagged sequences become vectors of the common element kind,
// or VECTOR_HASH when their elements are mappings.
//
// Parse failures are errs.SyntaxError values carrying the line and column.
package text
