// Package tagging decides which country each province belongs to.
//
// Provinces first pass the sliver filter, which drops only records that are
// tiny on every measure at once. Survivors go through the cascade, stopping
// at the first tier that answers:
//
//  1. containment: the country polygon holding the province centroid
//  2. nearby: the nearest country within the short radius (80 km)
//  3. override: the first overseas lookup keyword found in the name
//  4. fallback: the nearest country within the long radius (500 km)
//  5. isolated: the sentinel label
//
// Each tier is a pure function returning an Assignment; a province is never
// left without a country.
package tagging
