// Package manifold defines the manifold capability consumed by the census
// catalog.
//
// The catalog never computes geometry. It reconstructs manifolds from stored
// triangulations through the Manifold interface and relies on
// implementations for isometry tests, randomization and hashing.
//
// # Reference Implementation
//
// Record is a Manifold that keeps the reconstruction inputs instead of
// building a triangulation. Two records are equal, and isometric, exactly
// when their triangulation bodies are byte-identical. It is what the census
// command line tool and MCP server use when no geometric kernel is linked in:
//
//	src := census.Source{Path: path, Relation: "orientable_cusped_view", Kind: census.Cusped}
//	table, err := census.OpenTable(ctx, src, census.Filter{},
//	    census.WithFactory(manifold.NewRecord),
//	    census.WithHasher(manifold.BodyHash))
//
// BodyHash hashes a record's triangulation body with BLAKE3. Catalogs whose
// hash column was written with BodyHash can be searched with Identify using
// records as queries.
package manifold
