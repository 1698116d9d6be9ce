package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/census-mcp/internal/census"
	"github.com/dshills/census-mcp/internal/codec"
	"github.com/dshills/census-mcp/internal/storage"
	"github.com/dshills/census-mcp/pkg/manifold"
)

// newTestServer serves a catalog of five orientable cusped manifolds
// c0..c4 with volumes 2.0, 2.1, ... and one census knot K0 sharing c2's
// triangulation.
func newTestServer(t *testing.T, opts ...census.Option) *Server {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	w, err := storage.Create(ctx, path)
	require.NoError(t, err)

	insert := func(rel storage.Relation, name, body string, volume float64, betti int) {
		blob, err := codec.Encode(codec.Payload{NumCusps: 1, Body: []byte(body)})
		require.NoError(t, err)
		rec := manifold.NewRecord()
		require.NoError(t, rec.FromBytes([]byte(body)))
		hash, err := manifold.BodyHash(rec)
		require.NoError(t, err)
		require.NoError(t, w.Insert(ctx, rel, &storage.Row{
			Name: name, Triangulation: blob, Hash: hash, Volume: volume, Cusps: 1, Betti: betti,
		}))
	}

	cusped := storage.Relation{Name: storage.OrientableCuspedRelation, Shape: storage.CuspedShape}
	for i := range 5 {
		insert(cusped, fmt.Sprintf("c%d", i), fmt.Sprintf("body-%d", i), 2.0+0.1*float64(i), i%2)
	}
	insert(storage.Relation{Name: storage.CensusKnotsRelation, Shape: storage.CuspedShape},
		"K0", "body-2", 2.2, 1)
	insert(storage.Relation{Name: storage.CensusKnotsRelation, Shape: storage.CuspedShape},
		"K1", "knot-only", 3.0, 1)
	require.NoError(t, w.Close())

	reg := census.OpenRegistry(ctx, census.Sources{Database: path}, opts...)
	t.Cleanup(func() { _ = reg.Close() })

	server, err := NewServer(reg, nil)
	require.NoError(t, err)
	return server
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handler, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := h(context.Background(), request)
	if err != nil {
		return nil, err
	}
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &response))
	return response, nil
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code, mcpErr.Message)
}

func manifoldNames(t *testing.T, response map[string]interface{}) []string {
	t.Helper()
	list, ok := response["manifolds"].([]interface{})
	require.True(t, ok)
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.(map[string]interface{})["name"].(string)
	}
	return out
}

func TestServer_Initialization(t *testing.T) {
	t.Run("registry is required", func(t *testing.T) {
		_, err := NewServer(nil, nil)
		assert.Error(t, err)
	})

	t.Run("server has all required components", func(t *testing.T) {
		server := newTestServer(t)
		assert.NotNil(t, server.mcp, "MCP server should be initialized")
		assert.NotNil(t, server.registry, "Registry should be initialized")
		assert.NotNil(t, server.logger, "Logger should default to discard")
	})
}

func TestListTables(t *testing.T) {
	server := newTestServer(t)

	response, err := call(t, server.handleListTables, map[string]interface{}{})
	require.NoError(t, err)

	tables := response["tables"].([]interface{})
	require.Len(t, tables, len(census.StandardCensuses))

	first := tables[0].(map[string]interface{})
	assert.Equal(t, "orientable_cusped", first["id"])
	assert.Equal(t, true, first["available"])
	assert.Equal(t, float64(5), first["length"])

	last := tables[len(tables)-1].(map[string]interface{})
	assert.Equal(t, "ht_link_exteriors", last["id"])
	assert.Equal(t, false, last["available"])
	assert.NotEmpty(t, last["error"])
}

func TestLookupManifold(t *testing.T) {
	server := newTestServer(t)

	t.Run("found", func(t *testing.T) {
		response, err := call(t, server.handleLookupManifold, map[string]interface{}{"name": "c3"})
		require.NoError(t, err)
		assert.Equal(t, false, response["use_string"])
		assert.Equal(t, "Ym9keS0z", response["triangulation"]) // base64 of "body-3"
	})

	t.Run("other group", func(t *testing.T) {
		response, err := call(t, server.handleLookupManifold, map[string]interface{}{
			"name":  "K1",
			"group": "census_knots",
		})
		require.NoError(t, err)
		assert.Equal(t, "census_knots", response["group"])
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := call(t, server.handleLookupManifold, map[string]interface{}{})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := call(t, server.handleLookupManifold, map[string]interface{}{"name": "nope"})
		requireCode(t, err, ErrorCodeNotFound)
	})

	t.Run("unavailable group", func(t *testing.T) {
		_, err := call(t, server.handleLookupManifold, map[string]interface{}{
			"name":  "L11n1",
			"group": "ht_link_exteriors",
		})
		requireCode(t, err, ErrorCodeTableUnavailable)
	})
}

func TestGetManifold(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want []string
	}{
		{"numeric index", map[string]interface{}{"table": "orientable_cusped", "key": float64(1)}, []string{"c1"}},
		{"string index", map[string]interface{}{"table": "orientable_cusped", "key": "4"}, []string{"c4"}},
		{"name", map[string]interface{}{"table": "orientable_cusped", "key": "c2"}, []string{"c2"}},
		{"range", map[string]interface{}{"table": "orientable_cusped", "key": "-2:"}, []string{"c3", "c4"}},
		{"filtered index", map[string]interface{}{"table": "orientable_cusped", "key": float64(3), "betti": float64(1)}, []string{"c3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := call(t, server.handleGetManifold, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, manifoldNames(t, response))
		})
	}

	t.Run("description", func(t *testing.T) {
		response, err := call(t, server.handleGetManifold, map[string]interface{}{
			"table": "orientable_cusped", "key": "c0",
		})
		require.NoError(t, err)
		m := response["manifolds"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "c0(0,0)", m["description"])
		assert.Equal(t, float64(1), m["num_cusps"])
	})

	errs := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"index out of range", map[string]interface{}{"table": "orientable_cusped", "key": float64(5)}, ErrorCodeNotFound},
		{"unknown name", map[string]interface{}{"table": "orientable_cusped", "key": "m999"}, ErrorCodeNotFound},
		{"stepped range", map[string]interface{}{"table": "orientable_cusped", "key": "0:4:2"}, ErrorCodeInvalidParams},
		{"fractional index", map[string]interface{}{"table": "orientable_cusped", "key": 1.5}, ErrorCodeInvalidParams},
		{"unknown table", map[string]interface{}{"table": "everything", "key": "c0"}, ErrorCodeInvalidParams},
		{"unavailable table", map[string]interface{}{"table": "ht_link_exteriors", "key": "c0"}, ErrorCodeTableUnavailable},
		{"bad filter", map[string]interface{}{"table": "orientable_cusped", "key": "c0", "betti": "x"}, ErrorCodeInvalidParams},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, server.handleGetManifold, tt.args)
			requireCode(t, err, tt.code)
		})
	}
}

func TestSliceTable(t *testing.T) {
	server := newTestServer(t)

	t.Run("ordinal", func(t *testing.T) {
		response, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "start": float64(1), "stop": float64(3),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2"}, manifoldNames(t, response))
		assert.Equal(t, "1:3", response["range"])
	})

	t.Run("volume", func(t *testing.T) {
		response, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "vmin": 2.05, "vmax": 2.25,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"c1", "c2"}, manifoldNames(t, response))
	})

	t.Run("limit truncates", func(t *testing.T) {
		response, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "limit": float64(2),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c0", "c1"}, manifoldNames(t, response))
		assert.Equal(t, float64(2), response["count"])
		assert.Equal(t, true, response["truncated"])
	})

	t.Run("limit covering the range", func(t *testing.T) {
		response, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "start": float64(3), "limit": float64(2),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c3", "c4"}, manifoldNames(t, response))
		assert.Equal(t, false, response["truncated"])
	})

	t.Run("reversed range is empty", func(t *testing.T) {
		response, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "start": float64(4), "stop": float64(1),
		})
		require.NoError(t, err)
		assert.Empty(t, manifoldNames(t, response))
	})

	t.Run("mixed bounds", func(t *testing.T) {
		_, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "start": float64(1), "vmax": 2.5,
		})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := call(t, server.handleSliceTable, map[string]interface{}{
			"table": "orientable_cusped", "limit": float64(MaxSliceLimit + 1),
		})
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestIdentifyManifold(t *testing.T) {
	server := newTestServer(t)

	t.Run("match", func(t *testing.T) {
		response, err := call(t, server.handleIdentifyManifold, map[string]interface{}{
			"source": "census_knots", "name": "K0", "target": "orientable_cusped",
		})
		require.NoError(t, err)
		assert.Equal(t, "match", response["outcome"])
		assert.Equal(t, "c2", response["match"].(map[string]interface{})["name"])
	})

	t.Run("non-member", func(t *testing.T) {
		response, err := call(t, server.handleIdentifyManifold, map[string]interface{}{
			"source": "census_knots", "name": "K1", "target": "orientable_cusped",
		})
		require.NoError(t, err)
		assert.Equal(t, "non-member", response["outcome"])
		assert.Nil(t, response["match"])
	})

	t.Run("unknown query", func(t *testing.T) {
		_, err := call(t, server.handleIdentifyManifold, map[string]interface{}{
			"source": "census_knots", "name": "K9", "target": "orientable_cusped",
		})
		requireCode(t, err, ErrorCodeNotFound)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := call(t, server.handleIdentifyManifold, map[string]interface{}{
			"source": "census_knots", "name": "K0",
		})
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestSliceTableReadsOnlyTheLimit(t *testing.T) {
	var built atomic.Int64
	server := newTestServer(t, census.WithFactory(func() manifold.Manifold {
		built.Add(1)
		return manifold.NewRecord()
	}))

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"every row", map[string]interface{}{"table": "orientable_cusped", "limit": float64(1)}},
		{"ordinal", map[string]interface{}{"table": "orientable_cusped", "start": float64(0), "limit": float64(1)}},
		{"volume", map[string]interface{}{"table": "orientable_cusped", "vmin": 2.0, "limit": float64(1)}},
		{"filtered", map[string]interface{}{"table": "orientable_cusped", "betti": float64(0), "limit": float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built.Store(0)
			response, err := call(t, server.handleSliceTable, tt.args)
			require.NoError(t, err)
			assert.Len(t, manifoldNames(t, response), 1)
			assert.Equal(t, true, response["truncated"])
			// the limit plus the one row that detects truncation
			assert.Equal(t, int64(2), built.Load())
		})
	}
}
