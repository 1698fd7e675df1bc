// Package pathutil provides reference and path helpers shared by the
// decomposition pipeline.
//
// # Pointer Building
//
// [Pointer] builds JSON pointers incrementally with push/pop semantics
// while walking a node tree. The string is only materialized when a location
// has to be reported:
//
//	ptr := pathutil.Get()
//	defer pathutil.Put(ptr)
//
//	ptr.Push("paths")
//	ptr.Push("/farcaster/cast") // escaped to ~1farcaster~1cast
//	ptr.String()                // "/paths/~1farcaster~1cast"
//
// # Reference Builders
//
// Local component references and relative file references:
//
//	pathutil.SchemaRef("Cast")                                     // "#/components/schemas/Cast"
//	pathutil.FileRef("components/schemas/cast.yaml", "/Cast")       // "./components/schemas/cast.yaml#/Cast"
//	pathutil.RelativeRef("paths/cast/index.yaml", "openapi.yaml", "") // "../../openapi.yaml"
//
// # Output Path Sanitization
//
// [SanitizeOutputPath] validates and cleans output paths, rejecting
// symlinks. [WithinDir] reports whether a resolved file stays inside a base
// directory.
package pathutil
