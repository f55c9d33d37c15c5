// Package schema provides the principal schematics shared by all other
// packages. It defines the error kinds of the simulated kernel, the process
// identifier type and the entries of the output and kernel logs, which make up
// the read-only interface consumed by any presentation layer.
package schema
