// Package loop provides utilities for loop representation and detection.
//
// Loops are the natural loops of a function: a back edge is an edge whose
// target (the header) dominates its source (a latch), and the loop body is
// every block that reaches a latch without passing through the header.
// Loops sharing a header are merged, and loops nest by header containment.
//
// Where possible the loop parameters (index variable, initial value, step and
// the header condition) are extracted from the header phis and terminator.
package loop
