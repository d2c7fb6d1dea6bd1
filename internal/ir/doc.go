// Package ir provides the canonical intermediate representation of a process
// configuration.
//
// This package contains value and snapshot types only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Parameter values are typed: bool, int, double, string, input tag, list, pset
//   - Lists are homogeneous and never nest other lists
//   - ParameterSet keeps insertion order; hashing uses sorted keys
//   - Untracked parameters are emitted but excluded from content hashes
//   - Logical declaration order (seq) only, never wall-clock timestamps
package ir
