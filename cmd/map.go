package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ga4gh-tools/svcreg/internal/domain/snapshot"
	"github.com/ga4gh-tools/svcreg/internal/geomap"
	"github.com/ga4gh-tools/svcreg/internal/log"
	"github.com/ga4gh-tools/svcreg/internal/ui/mapview"
	"github.com/ga4gh-tools/svcreg/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	mapInput       string
	mapPNG         string
	mapSVG         string
	mapLabels      bool
	mapInteractive bool
	mapWatch       bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Plot DRS server locations on a world map",
	Long: `Read a tab-separated DRS server snapshot and render the servers as a
world map, sized by hosted data volume. Co-located servers are spread
into a ring so every marker stays visible. Writes both a PNG and an
SVG figure.

Examples:
  # Render drs_servers.tsv to drs_world_map.png and .svg
  svcreg map

  # Annotate markers with server names
  svcreg map --input snapshot.tsv --labels

  # Browse the servers in the terminal
  svcreg map --interactive

  # Re-render whenever the snapshot file changes
  svcreg map --watch`,
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().StringVarP(&mapInput, "input", "i", "",
		"snapshot TSV file (overrides config)")
	mapCmd.Flags().StringVar(&mapPNG, "png", "",
		"PNG output path (overrides config)")
	mapCmd.Flags().StringVar(&mapSVG, "svg", "",
		"SVG output path (overrides config)")
	mapCmd.Flags().BoolVar(&mapLabels, "labels", false,
		"annotate each marker with the server name")
	mapCmd.Flags().BoolVar(&mapInteractive, "interactive", false,
		"browse the plotted servers in the terminal")
	mapCmd.Flags().BoolVarP(&mapWatch, "watch", "w", false,
		"re-render whenever the snapshot file changes")
}

func runMap(cmd *cobra.Command, _ []string) error {
	cleanup, err := initLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := newTracing()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() { _ = provider.Shutdown(ctx) }()

	_, span := provider.Tracer().Start(ctx, "map")
	defer span.End()

	input := mapInput
	if input == "" {
		input = cfg.Map.Input
	}
	pngPath := mapPNG
	if pngPath == "" {
		pngPath = cfg.Map.PNG
	}
	svgPath := mapSVG
	if svgPath == "" {
		svgPath = cfg.Map.SVG
	}
	labels := mapLabels || cfg.Map.Labels

	placements, err := renderMap(cmd, input, pngPath, svgPath, labels)
	if err != nil {
		return err
	}

	switch {
	case mapInteractive:
		return runMapInteractive(input, placements)
	case mapWatch:
		return runMapWatch(cmd, input, pngPath, svgPath, labels)
	}
	return nil
}

// renderMap loads the snapshot and writes both figures, reporting
// skipped rows on stderr.
func renderMap(cmd *cobra.Command, input, pngPath, svgPath string, labels bool) ([]snapshot.Placement, error) {
	servers, skipped, err := snapshot.Load(input)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	for _, row := range skipped {
		log.Warn(log.CatSnapshot, "skipping snapshot row", "line", row.Line, "reason", row.Reason)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: line %d skipped: %s\n", row.Line, row.Reason)
	}

	placements := snapshot.Declutter(servers)

	opts := geomap.DefaultOptions()
	opts.Labels = labels
	p, err := geomap.Build(placements, opts)
	if err != nil {
		return nil, fmt.Errorf("building map: %w", err)
	}
	if err := geomap.Save(p, pngPath); err != nil {
		return nil, fmt.Errorf("writing %s: %w", pngPath, err)
	}
	if err := geomap.Save(p, svgPath); err != nil {
		return nil, fmt.Errorf("writing %s: %w", svgPath, err)
	}

	log.Info(log.CatRender, "map rendered", "servers", len(placements), "png", pngPath, "svg", svgPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Plotted %d servers to %s and %s\n", len(placements), pngPath, svgPath)
	return placements, nil
}

// runMapInteractive opens the terminal map view. With --watch, snapshot
// changes re-render the figures and refresh the view in place.
func runMapInteractive(input string, placements []snapshot.Placement) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := mapview.New(placements)
	if l := log.NewListener(ctx); l != nil {
		model = model.WithLogListener(l)
	}
	p := tea.NewProgram(model, tea.WithAltScreen())

	var w *watcher.Watcher
	if mapWatch {
		var err error
		w, err = watcher.New(watcher.DefaultConfig(input))
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		changes, err := w.Start()
		if err != nil {
			return fmt.Errorf("watching %s: %w", input, err)
		}
		go func() {
			for range changes {
				servers, _, err := snapshot.Load(input)
				if err != nil {
					log.ErrorErr(log.CatWatch, "snapshot reload failed", err, "path", input)
					continue
				}
				p.Send(mapview.RefreshMsg{Placements: snapshot.Declutter(servers)})
			}
		}()
	}

	_, err := p.Run()

	if w != nil {
		if stopErr := w.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// runMapWatch re-renders the figures on every snapshot change until
// interrupted.
func runMapWatch(cmd *cobra.Command, input, pngPath, svgPath string, labels bool) error {
	w, err := watcher.New(watcher.DefaultConfig(input))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("watching %s: %w", input, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes, Ctrl+C to stop\n", input)
	for {
		select {
		case <-changes:
			if _, err := renderMap(cmd, input, pngPath, svgPath, labels); err != nil {
				// A bad intermediate save keeps the previous figures.
				log.ErrorErr(log.CatWatch, "re-render failed", err, "path", input)
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: re-render failed: %v\n", err)
			}
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, stopping\n", sig)
			return nil
		}
	}
}
