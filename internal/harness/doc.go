// Package harness runs conformance scenarios against assembled processes.
//
// A scenario names a process file, the environment it is built in and the
// properties the finalized snapshot must have. Each run compiles the
// process from scratch with a deterministic clock and a fresh in-memory
// store, so the same scenario always yields the same snapshot hash.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: pgun_phase2
//	description: "Particle gun process runs gated main paths before end paths"
//	process: ../processes/pgun.cue
//	bundles: [./bundles]
//	global_tags:
//	  auto:upgradePLS3: MYTAG_V1
//	strict: false
//	assertions:
//	  - type: plan
//	    paths: [generation_step, simulation_step]
//	  - type: path_modules
//	    path: generation_step
//	    modules: [generator, randomEngineStateProducer]
//	  - type: param
//	    unit: GlobalTag
//	    field: globaltag
//	    value: MYTAG_V1::All
//
// A scenario that is expected to fail sets expect_error to the code of the
// configuration error instead of listing assertions:
//
//	expect_error: DUPLICATE_NAME
//
// # Assertion Types
//
//   - plan: the execution plan equals paths exactly
//   - path_modules: the flattened module list of path equals modules exactly
//   - module_order: modules appear in path in the given relative order
//   - param: a (dotted) field of a unit has the given value
//   - unit_absent: no unit named unit is registered
//   - warnings: the snapshot carries exactly count warnings
//   - validation: validation reports exactly the given codes (empty means clean)
//
// # Golden Files
//
// RunWithGolden compares a canonical summary of the snapshot against
// testdata/golden/{scenario.Name}.golden. To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
