package geomap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ga4gh-tools/svcreg/internal/domain/snapshot"
)

func samplePlacements() []snapshot.Placement {
	servers := []snapshot.Server{
		{Name: "EBI DRS", Lat: 52.08, Lon: 0.18, SizeGB: 120000},
		{Name: "Broad DRS", Lat: 42.36, Lon: -71.06, SizeGB: 450000},
		{Name: "Sydney DRS", Lat: -33.87, Lon: 151.21, SizeGB: 8000},
	}
	return snapshot.Declutter(servers)
}

func TestBuild(t *testing.T) {
	p, err := Build(samplePlacements(), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "DRS Servers", p.Title.Text)
	require.Equal(t, float64(-180), p.X.Min)
	require.Equal(t, float64(180), p.X.Max)
}

func TestBuild_WithLabels(t *testing.T) {
	opts := DefaultOptions()
	opts.Labels = true
	_, err := Build(samplePlacements(), opts)
	require.NoError(t, err)
}

func TestSave_PNGAndSVGNonEmpty(t *testing.T) {
	p, err := Build(samplePlacements(), DefaultOptions())
	require.NoError(t, err)

	dir := t.TempDir()
	pngPath := filepath.Join(dir, DefaultPNG)
	svgPath := filepath.Join(dir, DefaultSVG)

	require.NoError(t, Save(p, pngPath))
	require.NoError(t, Save(p, svgPath))

	for _, path := range []string{pngPath, svgPath} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		require.Greater(t, info.Size(), int64(0), "%s must be non-empty", path)
	}
}

func TestSave_NoExtension(t *testing.T) {
	p, err := Build(samplePlacements(), DefaultOptions())
	require.NoError(t, err)

	err = Save(p, filepath.Join(t.TempDir(), "map"))
	require.Error(t, err)
}

func TestSave_UnknownFormatLeavesNoFile(t *testing.T) {
	p, err := Build(samplePlacements(), DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "map.bogus")
	require.Error(t, Save(p, path))

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}
