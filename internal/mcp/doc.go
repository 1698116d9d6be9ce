// Package mcp implements the Model Context Protocol (MCP) server for the
// manifold census.
//
// The MCP server exposes five tools:
//   - list_tables: Which censuses are available and how large they are
//   - lookup_manifold: Stored triangulation of a manifold by name
//   - get_manifold: Manifolds by index, name or range
//   - slice_table: Manifolds by index range or volume range, optionally filtered
//   - identify_manifold: Search one census for a manifold taken from another
//
// # Basic Usage
//
// The MCP server is started via the serve command:
//
//	census serve --config ~/.census/census.yaml
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout.
//
// # Tool: get_manifold
//
//	Request:
//	{
//	  "name": "get_manifold",
//	  "arguments": {
//	    "table": "orientable_cusped",
//	    "key": "m004"
//	  }
//	}
//
//	Response:
//	{
//	  "count": 1,
//	  "manifolds": [
//	    {
//	      "name": "m004",
//	      "num_cusps": 1,
//	      "description": "m004(0,0)",
//	      "fillings": [[0, 0]],
//	      "triangulation": "..."
//	    }
//	  ],
//	  "table": "orientable_cusped_view without filters"
//	}
//
// Keys are 0-based indices (5), names (m004), index ranges (3:6, -3:) or
// volume ranges (2.0:2.1). Stepped ranges are rejected.
//
// # Tool: slice_table
//
//	Request:
//	{
//	  "name": "slice_table",
//	  "arguments": {
//	    "table": "orientable_cusped",
//	    "vmin": 2.0,
//	    "vmax": 2.1,
//	    "betti": 2
//	  }
//	}
//
// At most limit manifolds (default 100) are read and returned; truncated
// reports whether the range holds more.
//
// # Tool: identify_manifold
//
//	Request:
//	{
//	  "name": "identify_manifold",
//	  "arguments": {
//	    "source": "census_knots",
//	    "name": "K4_3",
//	    "target": "orientable_cusped"
//	  }
//	}
//
//	Response:
//	{
//	  "match": {"name": "m016", ...},
//	  "outcome": "match",
//	  "query": "K4_3",
//	  "table": "orientable_cusped_view without filters"
//	}
//
// The outcome is "match", "non-member" (certainly not in the target) or
// "inconclusive".
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments, stepped or mixed ranges)
//   - -32603: Internal error (database, malformed catalog)
//   - -32001: Census table unavailable
//   - -32002: Manifold not found
//   - -32003: Manifold name is ambiguous
//
// # Logging
//
// The MCP server logs to stderr; stdout is reserved for the protocol.
package mcp
