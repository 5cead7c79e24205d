// Package geomap renders the DRS server snapshot as a world map
// scatter plot, in raster (PNG) and vector (SVG) form.
package geomap

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ga4gh-tools/svcreg/internal/domain/snapshot"
	"github.com/ga4gh-tools/svcreg/internal/fsutil"
	"github.com/ga4gh-tools/svcreg/internal/log"
)

// Default output filenames.
const (
	DefaultPNG = "drs_world_map.png"
	DefaultSVG = "drs_world_map.svg"
)

// Figure dimensions, matching a 2:1 equirectangular world extent.
const (
	figWidth  = 14 * vg.Inch
	figHeight = 7 * vg.Inch
)

var (
	oceanColor  = color.NRGBA{R: 0xF0, G: 0xF8, B: 0xFF, A: 0xFF} // aliceblue
	markerColor = color.NRGBA{R: 0x1F, G: 0x77, B: 0xB4, A: 0x59} // blue, alpha ~0.35
)

// Options tune the rendered figure.
type Options struct {
	Title  string
	Labels bool // annotate each marker with the server name
}

// DefaultOptions returns the standard figure options.
func DefaultOptions() Options {
	return Options{Title: "DRS Servers"}
}

// Build assembles the world map plot from decluttered placements.
func Build(placements []snapshot.Placement, opts Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.X.Min, p.X.Max = -180, 180
	p.Y.Min, p.Y.Max = -90, 90
	p.BackgroundColor = oceanColor
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(placements))
	for i, pl := range placements {
		xys[i] = plotter.XY{X: pl.Lon, Y: pl.Lat}
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("building scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		// Marker area tracks the scaled snapshot size.
		radius := vg.Points(math.Sqrt(placements[i].Size/math.Pi) * 0.6)
		return draw.GlyphStyle{
			Color:  markerColor,
			Radius: radius,
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(scatter)

	if opts.Labels {
		names := make([]string, len(placements))
		for i, pl := range placements {
			names[i] = fmt.Sprintf("%s (%.0f GB)", pl.Server.Name, pl.Server.SizeGB)
		}
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
		if err != nil {
			return nil, fmt.Errorf("building labels: %w", err)
		}
		p.Add(labels)
	}

	return p, nil
}

// Save writes the plot to path, picking the format from the file
// extension. The file is written atomically and is either complete or
// absent.
func Save(p *plot.Plot, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("output path %q has no format extension", path)
	}

	err := fsutil.WriteAtomic(path, func(w io.Writer) error {
		wt, err := p.WriterTo(figWidth, figHeight, format)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", format, err)
		}
		if _, err := wt.WriteTo(w); err != nil {
			return fmt.Errorf("writing %s: %w", format, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info(log.CatRender, "wrote map", "path", path, "format", format)
	return nil
}
