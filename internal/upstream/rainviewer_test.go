package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-gateway/internal/weather"
)

func TestImageryBuildsTileURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"2.0","generated":1772395200,"host":"https://tilecache.rainviewer.com",
			"radar":{"past":[{"time":1772394600,"path":"/v2/radar/1772394600"},{"time":1772395200,"path":"/v2/radar/1772395200"}],
			"nowcast":[{"time":1772395800,"path":"/v2/radar/nowcast_abc"}]}}`))
	}))
	defer srv.Close()
	rv := NewRainViewer(srv.URL, testOptions())

	img, err := rv.Imagery(context.Background(), seattle)
	require.NoError(t, err)
	require.Equal(t, 6, img.Zoom)
	require.Equal(t, 10, img.TileX)
	require.Equal(t, 22, img.TileY)
	require.Len(t, img.Frames, 3)
	require.Equal(t, "past", img.Frames[0].Kind)
	require.Equal(t, "nowcast", img.Frames[2].Kind)
	require.Equal(t, "https://tilecache.rainviewer.com/v2/radar/1772394600/256/6/10/22/2/1_1.png", img.Frames[0].TileURL)
}

func TestImageryEmptyIndexIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"host":"","radar":{}}`))
	}))
	defer srv.Close()

	_, err := NewRainViewer(srv.URL, testOptions()).Imagery(context.Background(), seattle)
	require.ErrorIs(t, err, weather.ErrMalformedResponse)
}

func TestTileXYClampsPoles(t *testing.T) {
	x, y := tileXY(weather.Coordinate{Latitude: 90, Longitude: 180}, 6)
	require.Equal(t, 63, x)
	require.Equal(t, 0, y)
}
