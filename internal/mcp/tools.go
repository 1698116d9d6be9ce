package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/census-mcp/internal/census"
	"github.com/dshills/census-mcp/pkg/manifold"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeTableUnavailable = -32001 // Census catalog missing or unreadable
	ErrorCodeNotFound         = -32002 // No manifold for the index or name
	ErrorCodeAmbiguousName    = -32003 // Name matches several rows of one table
)

// Slice result limits
const (
	DefaultSliceLimit = 100
	MaxSliceLimit     = 1000
)

// handleListTables handles the list_tables tool invocation
func (s *Server) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables := make([]map[string]interface{}, 0, len(census.StandardCensuses))
	for _, st := range s.registry.Status() {
		entry := map[string]interface{}{
			"id":          string(st.Census.ID),
			"relation":    st.Census.Relation,
			"kind":        st.Census.Kind.String(),
			"description": st.Census.Description,
			"available":   st.Available,
		}
		if st.Available {
			entry["length"] = st.Length
		} else if st.Err != nil {
			entry["error"] = st.Err.Error()
		}
		tables = append(tables, entry)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"tables": tables,
	})), nil
}

// handleLookupManifold handles the lookup_manifold tool invocation
func (s *Server) handleLookupManifold(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	group := getStringDefault(args, "group", string(census.CuspedManifoldData))
	lookup, err := s.registry.Lookup(census.LookupID(group))
	if err != nil {
		return nil, s.toolError(ctx, "lookup_manifold", err)
	}

	entry, err := lookup.Get(ctx, name)
	if err != nil {
		return nil, s.toolError(ctx, "lookup_manifold", err)
	}

	response := map[string]interface{}{
		"name":          name,
		"group":         group,
		"use_string":    entry.UseString,
		"triangulation": triangulationValue(entry.Triangulation, entry.UseString),
	}
	if entry.Cobs != nil {
		response["peripheral_matrices"] = entry.Cobs
	}
	if entry.Perm != nil {
		response["cusp_permutation"] = entry.Perm
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetManifold handles the get_manifold tool invocation
func (s *Server) handleGetManifold(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	key, err := parseKeyArg(args["key"])
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid key", map[string]interface{}{
			"param":  "key",
			"reason": err.Error(),
		})
	}

	table, release, err := s.openTable(ctx, args, "table")
	if err != nil {
		return nil, err
	}
	defer release()

	found, err := table.Get(ctx, key)
	if err != nil {
		return nil, s.toolError(ctx, "get_manifold", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"table":     table.String(),
		"count":     len(found),
		"manifolds": describeAll(found),
	})), nil
}

// handleSliceTable handles the slice_table tool invocation
func (s *Server) handleSliceTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rng, err := parseRangeArgs(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid range", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	limit := getIntDefault(args, "limit", DefaultSliceLimit)
	if limit < 1 || limit > MaxSliceLimit {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("limit must be between 1 and %d", MaxSliceLimit), map[string]interface{}{
				"param": "limit",
				"value": limit,
			})
	}

	table, release, err := s.openTable(ctx, args, "table")
	if err != nil {
		return nil, err
	}
	defer release()

	// One row past the limit tells whether the range was cut short.
	found, err := table.SliceN(ctx, rng, limit+1)
	if err != nil {
		return nil, s.toolError(ctx, "slice_table", err)
	}

	truncated := len(found) > limit
	if truncated {
		found = found[:limit]
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"table":     table.String(),
		"range":     rng.String(),
		"count":     len(found),
		"truncated": truncated,
		"manifolds": describeAll(found),
	})), nil
}

// handleIdentifyManifold handles the identify_manifold tool invocation
func (s *Server) handleIdentifyManifold(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	source, err := s.censusTable(args, "source")
	if err != nil {
		return nil, err
	}
	target, release, err := s.openTable(ctx, args, "target")
	if err != nil {
		return nil, err
	}
	defer release()

	query, err := source.ByName(ctx, name)
	if err != nil {
		return nil, s.toolError(ctx, "identify_manifold", err)
	}

	result, err := target.Identify(ctx, query, census.IdentifyOptions{
		ExtendsToLink: getBoolDefault(args, "extends_to_link", false),
	})
	if err != nil {
		return nil, s.toolError(ctx, "identify_manifold", err)
	}

	response := map[string]interface{}{
		"query":   name,
		"table":   target.String(),
		"outcome": result.Outcome.String(),
	}
	if result.Outcome == census.Match {
		response["match"] = describeManifold(result.Manifold)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// censusTable resolves the census named by args[param].
func (s *Server) censusTable(args map[string]interface{}, param string) (*census.Table, error) {
	id, ok := args[param].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, param+" parameter is required", map[string]interface{}{
			"param":   param,
			"reason":  "missing or empty",
			"allowed": censusIDs(),
		})
	}
	if _, known := census.CensusByID(census.CensusID(id)); !known {
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown census", map[string]interface{}{
			"param":   param,
			"value":   id,
			"allowed": censusIDs(),
		})
	}

	table, err := s.registry.Table(census.CensusID(id))
	if err != nil {
		return nil, newMCPError(ErrorCodeTableUnavailable, "census table unavailable", map[string]interface{}{
			"table": id,
			"error": err.Error(),
		})
	}
	return table, nil
}

// openTable resolves the census named by args[param] narrowed by the filter
// arguments. release must be called once the table is no longer used.
func (s *Server) openTable(ctx context.Context, args map[string]interface{}, param string) (*census.Table, func(), error) {
	table, err := s.censusTable(args, param)
	if err != nil {
		return nil, nil, err
	}

	filter, err := census.ParseFilter(args)
	if err != nil {
		return nil, nil, newMCPError(ErrorCodeInvalidParams, "invalid filter", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	if filter.IsZero() {
		return table, func() {}, nil
	}

	narrowed, err := table.Configure(ctx, filter)
	if err != nil {
		return nil, nil, s.toolError(ctx, "configure", err)
	}
	return narrowed, func() { _ = narrowed.Close() }, nil
}

// toolError maps census errors onto MCP error codes.
func (s *Server) toolError(ctx context.Context, tool string, err error) error {
	data := map[string]interface{}{"error": err.Error()}

	switch {
	case errors.Is(err, census.ErrTableUnavailable):
		return newMCPError(ErrorCodeTableUnavailable, "census table unavailable", data)
	case errors.Is(err, census.ErrNotFound), errors.Is(err, census.ErrKeyNotFound):
		return newMCPError(ErrorCodeNotFound, "manifold not found", data)
	case errors.Is(err, census.ErrAmbiguousName):
		return newMCPError(ErrorCodeAmbiguousName, "manifold name is ambiguous", data)
	case errors.Is(err, census.ErrUnsupportedSlice), errors.Is(err, census.ErrInvalidIndexType):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	default:
		s.logger.ErrorContext(ctx, "tool failed", "tool", tool, "error", err)
		return newMCPError(ErrorCodeInternalError, tool+" failed", data)
	}
}

// parseKeyArg accepts a JSON number as an index and a string in ParseKey
// syntax.
func parseKeyArg(v interface{}) (census.Key, error) {
	switch k := v.(type) {
	case float64:
		if k != math.Trunc(k) {
			return census.Key{}, fmt.Errorf("index %v is not an integer", k)
		}
		return census.IndexKey(int(k)), nil
	case int:
		return census.IndexKey(k), nil
	case string:
		if k == "" {
			return census.Key{}, errors.New("key is empty")
		}
		return census.ParseKey(k)
	case nil:
		return census.Key{}, errors.New("key is required")
	default:
		return census.Key{}, fmt.Errorf("key must be a string or integer, got %T", v)
	}
}

// parseRangeArgs builds an ordinal range from start/stop or a volume range
// from vmin/vmax. Neither selects every row.
func parseRangeArgs(args map[string]interface{}) (census.Range, error) {
	_, hasStart := args["start"]
	_, hasStop := args["stop"]
	_, hasMin := args["vmin"]
	_, hasMax := args["vmax"]

	if (hasStart || hasStop) && (hasMin || hasMax) {
		return census.Range{}, census.ErrInvalidIndexType
	}

	var start, stop census.Bound
	if hasStart || hasStop {
		for param, dst := range map[string]*census.Bound{"start": &start, "stop": &stop} {
			v, ok := args[param]
			if !ok {
				continue
			}
			n, err := intArg(v)
			if err != nil {
				return census.Range{}, fmt.Errorf("%s: %w", param, err)
			}
			*dst = census.Ordinal(n)
		}
		return census.NewRange(start, stop)
	}

	for param, dst := range map[string]*census.Bound{"vmin": &start, "vmax": &stop} {
		v, ok := args[param]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			return census.Range{}, fmt.Errorf("%s must be a number, got %T", param, v)
		}
		*dst = census.Volume(f)
	}
	return census.NewRange(start, stop)
}

func intArg(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func describeAll(ms []manifold.Manifold) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(ms))
	for _, m := range ms {
		out = append(out, describeManifold(m))
	}
	return out
}

// describeManifold renders a manifold for a tool response. Records expose
// their reconstruction inputs.
func describeManifold(m manifold.Manifold) map[string]interface{} {
	out := map[string]interface{}{
		"name":      m.Name(),
		"num_cusps": m.NumCusps(),
	}
	if s, ok := m.(fmt.Stringer); ok {
		out["description"] = s.String()
	}
	if r, ok := m.(*manifold.Record); ok {
		out["triangulation"] = triangulationValue(r.Body(), r.IsText())
		if fillings := r.Fillings(); len(fillings) > 0 {
			pairs := make([][2]int, len(fillings))
			for i, f := range fillings {
				pairs[i] = [2]int{f.P, f.Q}
			}
			out["fillings"] = pairs
		}
		if perm := r.Permutation(); perm != nil {
			out["cusp_permutation"] = perm
		}
		if dt := r.DTCode(); dt != "" {
			out["dt_code"] = dt
		}
	}
	return out
}

// triangulationValue keeps text triangulations readable; binary ones are
// base64 encoded by the JSON encoder.
func triangulationValue(body []byte, text bool) interface{} {
	if text {
		return string(body)
	}
	return body
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
