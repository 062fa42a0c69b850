// Package core defines the shared types of the queryflow pipeline: field
// references, the query model, dimensions, result column metadata, and the
// row cursor contract.
//
// This package is the leaf dependency of the module. It imports nothing
// from queryflow itself, so drivers, writers, and the pipeline runtime can
// all depend on it without cycles.
package core
