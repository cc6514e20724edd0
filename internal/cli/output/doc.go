// Package output renders command results as a table, JSON or YAML.
//
// Tables are built by reflection: a slice of structs becomes one row per
// element and a single struct becomes a FIELD/VALUE listing. Struct tags
// steer the table:
//
//	table:"-"     hide the field
//	table:"wide"  show the field only in wide mode
//
// Header names come from the json tag when present.
package output
