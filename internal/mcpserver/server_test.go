package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-gateway/internal/tools"
	"github.com/i474232898/weather-gateway/internal/weather"
)

type fakeDispatcher struct {
	tier      tools.Tier
	gotParams map[string]any
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, params map[string]any) (json.RawMessage, error) {
	f.gotParams = params
	if name == tools.ToolAirQuality && !f.tier.Includes(tools.TierStandard) {
		return nil, weather.E(weather.KindToolDisabled, name, "requires standard")
	}
	if _, ok := params["latitude"]; !ok && name != tools.ToolCheckServiceStatus {
		return nil, weather.E(weather.KindInvalidCoordinate, name, "latitude is required")
	}
	return json.RawMessage(`{"source":"fake"}`), nil
}

func (f *fakeDispatcher) Tools() []tools.Descriptor { return tools.Enabled(f.tier) }

func connect(t *testing.T, d Dispatcher) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	s, err := New(d, "test", nil)
	require.NoError(t, err)

	ct, st := mcp.NewInMemoryTransports()
	_, err = s.MCP().Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestListsOnlyEnabledTools(t *testing.T) {
	session := connect(t, &fakeDispatcher{tier: tools.TierBasic})

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 5)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, tools.EnabledNames(tools.TierBasic), names)
}

func TestCallToolSuccess(t *testing.T) {
	d := &fakeDispatcher{tier: tools.TierBasic}
	session := connect(t, d)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.ToolForecast,
		Arguments: map[string]any{"latitude": 47.6062, "longitude": -122.3321, "days": 3},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	require.JSONEq(t, `{"source":"fake"}`, res.Content[0].(*mcp.TextContent).Text)
	require.Equal(t, json.Number("3"), d.gotParams["days"])
}

func TestCallToolErrorIsResult(t *testing.T) {
	session := connect(t, &fakeDispatcher{tier: tools.TierBasic})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.ToolForecast,
		Arguments: map[string]any{"longitude": 0},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)

	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "%T", res.StructuredContent)
	require.Equal(t, string(weather.KindInvalidCoordinate), structured["error"])
	require.Contains(t, structured["message"], "latitude")
}

func TestInputSchema(t *testing.T) {
	d, ok := findTool(tools.TierAll, tools.ToolForecast)
	require.True(t, ok)

	schema, err := InputSchema(d)
	require.NoError(t, err)
	require.Equal(t, "object", schema.Type)
	require.ElementsMatch(t, []string{"latitude", "longitude"}, schema.Required)
	require.Contains(t, schema.Properties, "days")
	require.JSONEq(t, `7`, string(schema.Properties["days"].Default))
	require.Equal(t, 90.0, *schema.Properties["latitude"].Maximum)

	resolved, err := schema.Resolve(nil)
	require.NoError(t, err)
	require.NoError(t, resolved.Validate(map[string]any{"latitude": 1.0, "longitude": 2.0, "days": 3.0}))
	require.Error(t, resolved.Validate(map[string]any{"latitude": 1.0}))
	require.Error(t, resolved.Validate(map[string]any{"latitude": 1.0, "longitude": 2.0, "extra": true}))
}

func findTool(tier tools.Tier, name string) (tools.Descriptor, bool) {
	for _, d := range tools.Enabled(tier) {
		if d.Name == name {
			return d, true
		}
	}
	return tools.Descriptor{}, false
}
