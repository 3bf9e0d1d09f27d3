// Package filesystem provides types.FS implementations: one backed by
// the real OS filesystem and one backed by afero for tests. Document
// persistence in kiwi goes through types.FS so that the registry, the
// package cache and the configuration store can be exercised against
// an in-memory filesystem.
package filesystem
