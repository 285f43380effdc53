// Package harness runs end-to-end scenarios against the canonical Monte
// Carlo driver.
//
// A scenario is a YAML file holding an inline settings document, a seed,
// a list of steps and a list of assertions. Steps run the driver, damage
// or remove files in the output directory, or patch the settings between
// runs, which is how interruption and resume are exercised:
//
//	name: resume_after_interruption
//	description: A missing final state is recomputed on the next run.
//	seed: 7
//	settings:
//	  model: {...}
//	  driver: {...}
//	  data: {...}
//	steps:
//	  - run: {}
//	  - remove: conditions.1/final_state.json
//	  - run: {}
//	assertions:
//	  - type: results_rows
//	    format: csv
//	    count: 3
//
// Each scenario runs in a fresh temporary directory with its own SQLite
// database and fixed run ids, so traces are reproducible and can be
// compared against golden files with RunWithGolden.
package harness
