// Package tempscop collects, for a region of a function, the information the
// polyhedral model is built from: the trip count of each loop, the branch
// conditions guarding each block and the memory and scalar accesses of each
// block.
package tempscop
