// Package build turns a versioned add-on source tree into .ankiaddon
// artifacts.
//
// A Pipeline runs four phases against a staging area inside the project's
// output directory:
//   - CreateDist snapshots the resolved version into the staging area
//   - BuildDist adds licenses, changelog, icons, compiled forms and the
//     manifest for one distribution target
//   - PackageDist zips the staged module directory into an artifact
//   - Cleanup removes the staging area
//
// # Usage
//
//	p, err := build.New(ctx, cfg, build.Options{Version: "release"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paths, err := p.BuildTargets(ctx, build.Local, build.AnkiWeb)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Output Structure
//
//	dist/
//	├── build/                              # staging area, removed by Cleanup
//	│   └── src/review_heatmap/
//	├── review-heatmap-v1.2.0.ankiaddon          # local target
//	└── review-heatmap-v1.2.0-ankiweb.ankiaddon  # ankiweb target
//
// Artifacts are reproducible: entries are sorted and carry a fixed
// timestamp, so packaging the same staging tree twice yields identical
// archives.
package build
