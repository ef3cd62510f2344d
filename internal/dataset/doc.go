// Package dataset holds the columnar movie table and the stages that shape it:
// assembly from enriched records, the column mapping of each dataset kind,
// text normalisation and duplicate title disambiguation.
//
// Tables are column-major. A nil cell is a null. List columns hold []string
// or []int64 values until normalisation joins or decodes them.
package dataset
