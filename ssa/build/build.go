// Package build is a helper package for building SSA IR in the parent
// directory.
//
// Usage
//
// There are three ways of building SSA IR from source code:
//
// Build from a list of source files
//
// A number of files are supplied (usually as command line arguments), and the
// builder considers all of the files part of the same package.
//
// Build from a Reader
//
// This is mostly used for testing or demo, where the input source code is read
// from a given io.Reader and parsed as a file called "tmp".
//
// Build from package patterns
//
// Packages are resolved by the go command (e.g. ./...) and built together
// with their dependencies.
//
package build
