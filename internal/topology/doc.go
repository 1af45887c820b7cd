// Package topology converts polygon features into a quantized TopoJSON
// topology with shared arcs.
//
// Build snaps every coordinate to a fine integer grid, cuts rings at the
// junctions where neighbouring boundaries meet or diverge, and stores each
// boundary stretch once no matter how many polygons use it or in which
// direction. Arcs are then simplified with Douglas-Peucker, so both sides of
// a shared border simplify identically and no gaps or slivers open up
// between neighbours. Finally coordinates are requantized to a coarser grid
// and delta-encoded.
//
// Decode inverts a layer back into features.
package topology
