// Package linkml implements a schema compiler and validation engine for a
// YAML-based data-modeling language: classes, slots, types, enums,
// constraints, rules, and a sandboxed expression language.
//
// The package parses schemas, resolves imports and inheritance, compiles
// classes into executable validator pipelines, and runs those pipelines
// over instance data with bounded resource usage.
package linkml
