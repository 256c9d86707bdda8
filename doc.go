// Package slicer extracts self-contained slices of a Java code corpus.
//
// A slice is the smallest subset of a corpus that keeps a chosen set of
// seed entities referenceable: their declaring types, the fields and
// methods they use or call, the constructors and initializers of every
// internal type involved, and every ancestor type a selected type needs in
// order to compile. The corpus is read from a relational fact store of
// entities, relations and imports (see internal/store); the output is a
// zip archive of reconstructed .java files.
//
// # Pipeline
//
// A slicing operation runs four sequential phases:
//
//  1. Seed: admit each seed and everything it CONTAINS. The seeds'
//     projects become internal; every other project is external.
//
//  2. Expand: drain a FIFO worklist. Members pull in their declaring type
//     and their USES and CALLS targets. Types pull in their declaring type
//     and CALLS targets, and internal types also pull in their
//     initializers and constructors.
//
//  3. Repair: resolve the EXTENDS/IMPLEMENTS graph of every internal type
//     and admit missing ancestors, reopening the worklist until nothing new
//     is admitted.
//
//  4. Imports: attach the import records of every sliced file.
//
// # Usage
//
//	s, err := store.NewStore("facts.db")
//	if err != nil { ... }
//	defer s.Close()
//
//	sl := slicer.New(slicer.StoreOpener(s, 0))
//	slice, err := sl.Slice(ctx, []int64{42})
//	zip, err := slice.ToArchive(ctx, provider)
//
// Reconstruction needs the original file bytes, supplied by a
// [ContentProvider] (see internal/content).
package slicer
