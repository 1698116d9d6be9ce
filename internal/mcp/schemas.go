package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/census-mcp/internal/census"
)

func censusIDs() []string {
	ids := make([]string, 0, len(census.StandardCensuses))
	for _, c := range census.StandardCensuses {
		ids = append(ids, string(c.ID))
	}
	return ids
}

func lookupIDs() []string {
	ids := make([]string, 0, len(census.StandardLookups))
	for _, l := range census.StandardLookups {
		ids = append(ids, string(l.ID))
	}
	return ids
}

// filterProperties are the optional narrowing arguments shared by the
// table tools.
func filterProperties() map[string]interface{} {
	return map[string]interface{}{
		"betti": map[string]interface{}{
			"type":        "integer",
			"description": "Only manifolds with this first Betti number",
		},
		"cusps": map[string]interface{}{
			"type":        "integer",
			"description": "Only manifolds with this many cusps",
		},
		"tets": map[string]interface{}{
			"type":        "integer",
			"description": "Only manifolds triangulated by this many tetrahedra",
		},
		"filter": map[string]interface{}{
			"type":        "string",
			"description": "Raw SQL predicate over the table's columns, e.g. 'volume > 2.5'",
		},
		"alternating": map[string]interface{}{
			"type":        "boolean",
			"description": "Link tables only: alternating (true) or non-alternating (false) links",
		},
		"knots_vs_links": map[string]interface{}{
			"type":        "string",
			"description": "Link tables only: knots (one component) or links (several)",
			"enum":        []string{"knots", "links"},
		},
		"crossings": map[string]interface{}{
			"type":        "integer",
			"description": "Link tables only: number of crossings",
		},
	}
}

func withFilters(props map[string]interface{}) map[string]interface{} {
	for k, v := range filterProperties() {
		props[k] = v
	}
	return props
}

// listTablesTool returns the tool definition for list_tables
func listTablesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tables",
		Description: "List the manifold censuses and whether their catalogs are available",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// lookupManifoldTool returns the tool definition for lookup_manifold
func lookupManifoldTool() mcp.Tool {
	return mcp.Tool{
		Name:        "lookup_manifold",
		Description: "Fetch the stored triangulation of a manifold by name without building it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Census name, e.g. m004 or K5a1",
				},
				"group": map[string]interface{}{
					"type":        "string",
					"description": "Which tables to search",
					"enum":        lookupIDs(),
					"default":     string(census.CuspedManifoldData),
				},
			},
			Required: []string{"name"},
		},
	}
}

// getManifoldTool returns the tool definition for get_manifold
func getManifoldTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_manifold",
		Description: "Get manifolds from a census by index, name or range",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withFilters(map[string]interface{}{
				"table": map[string]interface{}{
					"type":        "string",
					"description": "Census to read",
					"enum":        censusIDs(),
				},
				"key": map[string]interface{}{
					"type": []string{"string", "integer"},
					"description": "0-based index (5), name (m004), index range (3:6, -3:) " +
						"or volume range (2.0:2.1)",
				},
			}),
			Required: []string{"table", "key"},
		},
	}
}

// sliceTableTool returns the tool definition for slice_table
func sliceTableTool() mcp.Tool {
	return mcp.Tool{
		Name:        "slice_table",
		Description: "List manifolds of a census by index range or volume range",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withFilters(map[string]interface{}{
				"table": map[string]interface{}{
					"type":        "string",
					"description": "Census to read",
					"enum":        censusIDs(),
				},
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "First index, negative counts from the end",
				},
				"stop": map[string]interface{}{
					"type":        "integer",
					"description": "Index after the last one, negative counts from the end",
				},
				"vmin": map[string]interface{}{
					"type":        "number",
					"description": "Smallest volume (inclusive); excludes start/stop",
				},
				"vmax": map[string]interface{}{
					"type":        "number",
					"description": "Largest volume (exclusive); excludes start/stop",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of manifolds to return",
					"default":     DefaultSliceLimit,
					"minimum":     1,
					"maximum":     MaxSliceLimit,
				},
			}),
			Required: []string{"table"},
		},
	}
}

// identifyManifoldTool returns the tool definition for identify_manifold
func identifyManifoldTool() mcp.Tool {
	return mcp.Tool{
		Name:        "identify_manifold",
		Description: "Search a census for a manifold isometric to one taken from another census",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Census holding the query manifold",
					"enum":        censusIDs(),
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the query manifold in the source census",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Census to search",
					"enum":        censusIDs(),
				},
				"extends_to_link": map[string]interface{}{
					"type":        "boolean",
					"description": "Only accept isometries taking meridians to meridians",
					"default":     false,
				},
			},
			Required: []string{"source", "name", "target"},
		},
	}
}
