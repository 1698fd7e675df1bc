// Package oasplit decomposes a monolithic OpenAPI 3.x document into a tree
// of small fragment files, keeps that tree consistent, and bundles it back.
//
// # Overview
//
// A source document such as
//
//	openapi: 3.0.3
//	paths:
//	  /farcaster/user: {...}
//	components:
//	  schemas:
//	    User: {...}
//
// is split into
//
//	openapi.yaml                      root, references only
//	components/schemas/user.yaml      schemas grouped by category
//	components/parameters/Fid.yaml    one file per extracted component
//	paths/farcaster/user.yaml         one file per path item
//
// The root keeps every other section (info, servers, security, tags) in its
// original order and content.
//
// # Packages
//
//   - parser: node-tree parsing, section and entity extraction, encoding
//   - classifier: assigns each schema to a category with an ordered rule table
//   - pathsplit: maps path templates to (resource, action) and back
//   - fragment: writes fragment files without touching unchanged ones
//   - rewriter: builds the root document and relocates references
//   - reconciler: verifies root references and repairs broken ones
//   - decomposer: the extract, classify, split, build and write pipeline
//   - bundler: inlines a fragment tree back into a single document
//
// # Quick Start
//
//	result, err := decomposer.DecomposeWithOptions(ctx,
//	    decomposer.WithFilePath("openapi.yaml"),
//	    decomposer.WithOutputDir("spec"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d files written\n", len(result.Changed))
//
// Bundle the tree back:
//
//	bundled, err := bundler.Bundle(ctx, bundler.WithRootPath("spec/openapi.yaml"))
//
// The oasplit command wraps the same packages; see cmd/oasplit.
package oasplit
