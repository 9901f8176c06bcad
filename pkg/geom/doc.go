// Package geom contains the vector and rigid-transform primitives used to place
// optical elements and to move rays between a node's local frame and the
// frame of the enclosing graph.
package geom
