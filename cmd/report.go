package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ga4gh-tools/svcreg/internal/domain/service"
	"github.com/ga4gh-tools/svcreg/internal/fsutil"
	"github.com/ga4gh-tools/svcreg/internal/infrastructure/registry"
	"github.com/ga4gh-tools/svcreg/internal/log"
	"github.com/ga4gh-tools/svcreg/internal/report"
)

var (
	reportArtifact string
	reportOutput   string
	reportLive     bool
	reportPreview  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an HTML summary of registered services",
	Long: `Fetch all services from the GA4GH service registry and write an HTML
summary table. With --live, each service's own service-info endpoint is
probed and rows whose live version disagrees with the registry entry
are highlighted.

Examples:
  # Summarize every registered service
  svcreg report

  # Only DRS services, with live version checks
  svcreg report --artifact drs --live

  # Render the summary in the terminal as well
  svcreg report --preview`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportArtifact, "artifact", "a", "",
		"only include services of this artifact type (e.g. drs, wes)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"output HTML file (overrides config)")
	reportCmd.Flags().BoolVar(&reportLive, "live", false,
		"probe each service's live service-info endpoint")
	reportCmd.Flags().BoolVar(&reportPreview, "preview", false,
		"also render the summary to the terminal")
}

func runReport(cmd *cobra.Command, _ []string) error {
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

	ctx, span := provider.Tracer().Start(ctx, "report")
	defer span.End()

	output := reportOutput
	if output == "" {
		output = cfg.Report.Output
	}
	live := reportLive || cfg.Report.Live

	client := registry.NewClient(cfg.Registry)
	services, err := client.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("fetching registry services: %w", err)
	}
	log.Info(log.CatFetch, "fetched registry services", "count", len(services))

	services = service.FilterByArtifact(services, reportArtifact)
	if reportArtifact != "" {
		log.Info(log.CatFetch, "filtered services", "artifact", reportArtifact, "count", len(services))
	}

	var probe report.LiveProbe
	if live {
		probe = func(baseURL, artifact string) (string, string, string, bool) {
			info := client.ProbeServiceInfo(ctx, baseURL, artifact)
			if info == nil {
				return "", "", "", false
			}
			return info.Version, info.URL, info.Err, true
		}
	}

	data := report.Data{
		GeneratedAt: time.Now(),
		Filter:      reportArtifact,
		Rows:        report.BuildRows(services, probe),
	}

	if err := fsutil.WriteAtomic(output, func(w io.Writer) error {
		return report.RenderHTML(w, data)
	}); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	log.Info(log.CatRender, "report written", "path", output, "services", len(data.Rows))

	if reportPreview {
		rendered, err := glamour.Render(report.RenderMarkdown(data), "auto")
		if err != nil {
			// Preview failure never invalidates the written report.
			log.ErrorErr(log.CatRender, "preview rendering failed", err)
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderMarkdown(data))
		} else {
			fmt.Fprint(cmd.OutOrStdout(), rendered)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d services)\n", output, len(data.Rows))
	return nil
}
