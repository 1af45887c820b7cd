// Package overrides loads the manual overseas-territory lookup table.
//
// The table is a CSV with an island_name keyword column and an admin0
// country column. A province whose name contains a keyword (case-insensitive
// substring) is assigned that country when geometry alone cannot place it.
// Rows are matched in file order; the first hit wins. A missing file is not
// an error: the table is simply empty.
package overrides
