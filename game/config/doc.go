// Package config loads level definition files and registers them.
//
// The config package handles:
//   - Loading level definitions from YAML (.yaml, .yml) and JSON files
//   - Validating definitions, including grid layouts and their solvability
//   - Building level descriptors and registering them with a registry
//
// Definition Format:
//
// Each file defines exactly one level:
//
//	code: tardis
//	name: Bigger on the inside
//	kind: grid
//	max_connections: 4
//	max_duration: 120
//	layout:
//	  - "#####"
//	  - "#S.E#"
//	  - "#####"
//	messages:
//	  victory: "Out at last."
//
// max_duration is expressed in seconds. Zero limits mean unlimited. The kind
// is either "grid" (the default) or "test".
//
// Usage:
//
//	manager, err := config.NewManager("levels", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	reg := registry.New()
//	if err := manager.Populate(reg); err != nil {
//		log.Fatal(err)
//	}
//	reg.Seal()
//
// The built-in "test" level is always registered by Populate; a file that
// reuses its code is rejected with a duplicate code error.
package config
