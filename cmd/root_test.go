package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ga4gh-tools/svcreg/internal/config"
)

// executeCommand runs the root command with the given args and
// captures stdout/stderr.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		// rootCmd, its flags, and viper are package-level state; reset
		// them so values set by one test do not leak into the next.
		_ = rootCmd.PersistentFlags().Set("config", "")
		cfgFile = ""
		cfg = config.Config{}
		viper.Reset()
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTestConfig writes a minimal config file pointing the registry
// client at url, returning its path.
func writeTestConfig(t *testing.T, dir, url string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("registry:\n  url: %s\n  timeout_seconds: 5\n", url)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// === CLI Structure Tests ===

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	require.True(t, names["report"])
	require.True(t, names["map"])
	require.True(t, names["generate"])
}

func TestGenerateCommand_RequiresInputAndMapping(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := executeCommand(t, "generate")

	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	require.Equal(t, "1.2.3", rootCmd.Version)
}

// === Report Tests ===

func TestReport_WritesHTMLSummary(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/services", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": "org.ga4gh.drs1", "name": "Alpha DRS",
			 "type": {"group": "org.ga4gh", "artifact": "drs", "version": "1.2.0"},
			 "organization": {"name": "Alpha Org"}, "url": "https://alpha.example.org"},
			{"id": "org.ga4gh.wes1", "name": "Beta WES",
			 "type": {"group": "org.ga4gh", "artifact": "wes", "version": "1.0.0"},
			 "organization": {"name": "Beta Org"}, "url": "https://beta.example.org"}
		]`)
	}))
	t.Cleanup(srv.Close)

	cfgPath := writeTestConfig(t, tmpDir, srv.URL)
	outPath := filepath.Join(tmpDir, "summary.html")

	out, err := executeCommand(t, "--config", cfgPath, "report", "--output", outPath)
	require.NoError(t, err)
	require.Contains(t, out, "2 services")

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(html), "Alpha DRS")
	require.Contains(t, string(html), "Beta WES")
}

func TestReport_ArtifactFilter(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"name": "Alpha DRS", "type": {"artifact": "drs", "version": "1.2.0"}},
			{"name": "Beta WES", "type": {"artifact": "wes", "version": "1.0.0"}}
		]`)
	}))
	t.Cleanup(srv.Close)

	cfgPath := writeTestConfig(t, tmpDir, srv.URL)
	outPath := filepath.Join(tmpDir, "summary.html")

	_, err := executeCommand(t, "--config", cfgPath, "report", "--artifact", "drs", "--output", outPath)
	require.NoError(t, err)

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(html), "Alpha DRS")
	require.NotContains(t, string(html), "Beta WES")

	t.Cleanup(func() { reportArtifact = "" })
}

func TestReport_RegistryDown(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // deliberately unreachable

	cfgPath := writeTestConfig(t, tmpDir, srv.URL)
	outPath := filepath.Join(tmpDir, "summary.html")

	_, err := executeCommand(t, "--config", cfgPath, "report", "--output", outPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetching registry services")
	require.NoFileExists(t, outPath)
}

func TestReport_InvalidConfigRejected(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := "registry:\n  url: http://localhost:1\n  timeout_seconds: -5\n  retry_max: -3\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	outPath := filepath.Join(tmpDir, "summary.html")
	_, err := executeCommand(t, "--config", cfgPath, "report", "--output", outPath)

	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
	require.Contains(t, err.Error(), "timeout_seconds")
	require.NoFileExists(t, outPath)
}

// === Map Tests ===

func TestMap_WritesFigures(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	snapshot := "Name\tOrganization\tLat_Long\tTotalSize_GB\n" +
		"Alpha DRS\tAlpha Org\t52.08, 0.18\t5000\n" +
		"Beta DRS\tBeta Org\t42.36, -71.09\t12000\n"
	snapPath := filepath.Join(tmpDir, "servers.tsv")
	require.NoError(t, os.WriteFile(snapPath, []byte(snapshot), 0o600))

	pngPath := filepath.Join(tmpDir, "map.png")
	svgPath := filepath.Join(tmpDir, "map.svg")

	out, err := executeCommand(t, "map",
		"--input", snapPath, "--png", pngPath, "--svg", svgPath)
	require.NoError(t, err)
	require.Contains(t, out, "Plotted 2 servers")

	png, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	svg, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	require.Contains(t, string(svg), "<svg")
}

func TestMap_MissingSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	_, err := executeCommand(t, "map", "--input", filepath.Join(tmpDir, "absent.tsv"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "loading snapshot")
}

// === Generate Tests ===

func TestGenerate_WritesSubmissionJSON(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	sheet := "Service Name,Artifact,Homepage\n" +
		"Alpha DRS,drs,https://alpha.example.org\n" +
		"Beta WES,wes,https://beta.example.org\n"
	inputPath := filepath.Join(tmpDir, "services.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(sheet), 0o600))

	mapping := `mapping:
  name: Service Name
  type.artifact: Artifact
  url: Homepage
  type.group:
    const: org.ga4gh
array_name: services
`
	mappingPath := filepath.Join(tmpDir, "mapping.yaml")
	require.NoError(t, os.WriteFile(mappingPath, []byte(mapping), 0o600))

	outPath := filepath.Join(tmpDir, "out.json")
	out, err := executeCommand(t, "generate",
		"--input", inputPath, "--mapping", mappingPath, "--output", outPath)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote 2 records")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc["services"], 2)
	require.Equal(t, "Alpha DRS", doc["services"][0]["name"])

	typ, ok := doc["services"][0]["type"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "drs", typ["artifact"])
	require.Equal(t, "org.ga4gh", typ["group"])
}

func TestGenerate_MissingMappingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	inputPath := filepath.Join(tmpDir, "services.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte("A\n1\n"), 0o600))

	_, err := executeCommand(t, "generate",
		"--input", inputPath, "--mapping", filepath.Join(tmpDir, "absent.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "loading mapping config")
}
