package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/beodata/internal/cache"
	"github.com/kokistudios/beodata/internal/export"
	"github.com/kokistudios/beodata/internal/heorot"
	"github.com/kokistudios/beodata/internal/httpapi"
	"github.com/kokistudios/beodata/internal/ingest"
	beomcp "github.com/kokistudios/beodata/internal/mcp"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/store"
	"github.com/kokistudios/beodata/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	// A missing .env is normal; variables already set win.
	_ = godotenv.Load()

	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "beodata",
		Short: "beodata: the bilingual Beowulf corpus",
		Long:  "Build and query an aligned Old English / Modern English Beowulf corpus with token annotations, the Bosworth-Toller dictionary, and caption exports.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
		SilenceUsage: true,
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "query", Title: "Query Commands:"},
		&cobra.Group{ID: "output", Title: "Export and Serving:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{initCmd(), doctorCmd(), fetchCmd()} {
		c.GroupID = "core"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		linesCmd(), sectionCmd(), summaryCmd(), searchCmd(),
		btCmd(), abbrevCmd(), tokensCmd(), verseCmd(),
	} {
		c.GroupID = "query"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{exportCmd(), serveCmd(), mcpServeCmd()} {
		c.GroupID = "output"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{configCmd(), cacheCmd()} {
		c.GroupID = "config"
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(completionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize BEODATA_HOME directory structure",
		Long:    "Create the BEODATA_HOME directory (~/.beodata by default) with cache/, assets/, exports/, and config.yaml. Place the token, dictionary, and abbreviation files in assets/ afterwards.",
		Example: "  beodata init\n  beodata init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if force {
				if _, err := os.Stat(home); err == nil {
					ok, err := ui.Confirm(fmt.Sprintf("Reinitialize %s? config.yaml will be reset.", home))
					if err != nil {
						return err
					}
					if !ok {
						ui.EmptyState("Aborted.")
						return nil
					}
				}
			}
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("beodata initialized")
			ui.Fields(ui.Field{Key: "Home", Value: home})
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if BEODATA_HOME already exists")
	return cmd
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("beodata not initialized (run 'beodata init' first): %w", err)
	}
	return s, nil
}

func newClient(s *store.Store) (*heorot.Client, error) {
	c, err := cache.New(s.Path("cache"))
	if err != nil {
		return nil, err
	}
	return heorot.NewClient(c), nil
}

// loadEngine runs the full ingestion pipeline. Any ingestion error aborts
// the command before a query is answered.
func loadEngine(ctx context.Context) (*query.Engine, *store.Store, error) {
	s, err := loadStore()
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient(s)
	if err != nil {
		return nil, nil, err
	}
	spin := ui.NewSpinner("Building corpus...")
	e, err := ingest.FromStore(ctx, s, client)
	spin.Stop()
	if err != nil {
		ui.Error("Corpus construction failed")
		return nil, nil, fmt.Errorf("building corpus: %w", err)
	}
	return e, s, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fetchCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the bilingual edition into the cache",
		Long:  "Fetch the heorot.dk bilingual Beowulf page (sources.heorot_url), store it compressed in the cache, and report how many line pairs it parses into.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			client, err := newClient(s)
			if err != nil {
				return err
			}
			spin := ui.NewSpinner("Fetching edition...")
			pairs, err := ingest.Bilingual(cmd.Context(), s, client, refresh)
			spin.Stop()
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Parsed %d line pairs", len(pairs)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore the cached copy and download again")
	return cmd
}

func doctorCmd() *cobra.Command {
	var fix, corpus bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of BEODATA_HOME and the configured sources",
		Long: `Check BEODATA_HOME and the configured sources. With --corpus the full
construction pipeline runs as well, so numbering drift between the sources
surfaces here rather than at query time.

Exit status is 2 when an error is found and 1 when only warnings are.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			mode := "health check"
			if fix {
				mode = "repair mode"
			}
			ui.CommandBanner("DOCTOR", mode)

			if fix {
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success("[FIXED] " + f)
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			}

			var errs, warns int
			for _, issue := range store.CheckHealth(home) {
				if issue.Severity == "error" {
					ui.Error("[ERR]  " + issue.Message)
					errs++
				} else {
					ui.Warning("[WARN] " + issue.Message)
					warns++
				}
			}

			if corpus && errs == 0 {
				e, _, err := loadEngine(cmd.Context())
				if err != nil {
					ui.Error(err.Error())
					errs++
				} else {
					sum := e.Summary()
					ui.Success(fmt.Sprintf("Corpus built: %d lines, %d tokens", sum.TotalLines, sum.Tokens))
					ui.Fields(
						ui.Field{Key: "Absent lines", Value: fmt.Sprint(sum.AbsentLines)},
						ui.Field{Key: "Fitt drift", Value: fmt.Sprintf("%d tokens", sum.Drift)},
					)
					if n := len(sum.Warnings); n > 0 {
						ui.Warning(fmt.Sprintf("[WARN] %d verse lines have no tokens", n))
						warns++
					}
				}
			}

			switch {
			case errs > 0:
				os.Exit(2)
			case warns > 0:
				os.Exit(1)
			}
			ui.Success("Everything looks good")
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Create missing directories and a default config")
	cmd.Flags().BoolVar(&corpus, "corpus", false, "Also build the corpus and report coverage")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit beodata configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			v, err := s.ConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a beodata configuration value. Valid keys: sources.heorot_url, sources.bilingual_path, sources.tokens_path, sources.dictionary_path, sources.abbreviations_path, summary.sample_size, serve.addr, serve.allowed_origins, export.seconds_per_line.",
		Example: `  beodata config set summary.sample_size 10
  beodata config set serve.allowed_origins https://example.org,https://example.net
  beodata config set sources.bilingual_path assets/heorot.html`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the download cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache entry count and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			c, err := cache.New(s.Path("cache"))
			if err != nil {
				return err
			}
			n, size, err := c.Stats()
			if err != nil {
				return err
			}
			ui.Fields(
				ui.Field{Key: "Dir", Value: c.Dir()},
				ui.Field{Key: "Entries", Value: fmt.Sprint(n)},
				ui.Field{Key: "Size", Value: fmt.Sprintf("%d bytes", size)},
			)
			return nil
		},
	})

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached download",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			c, err := cache.New(s.Path("cache"))
			if err != nil {
				return err
			}
			if !yes {
				ok, err := ui.Confirm("Delete all cached downloads?")
				if err != nil {
					return err
				}
				if !ok {
					ui.EmptyState("Aborted.")
					return nil
				}
			}
			n, err := c.Clear()
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Removed %d cache entries", n))
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(clearCmd)
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
		stem   string
	)
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the corpus as JSON, CSV, ASS captions, or a SQLite snapshot",
		Long: `Write every canonical line, absent placeholders included, in one format.

json and csv write a single <stem>.<format> file. ass writes one caption
script per present fitt (fitt_<id>.ass). sqlite writes <stem>.db with
sections, lines, and tokens tables.`,
		Example: `  beodata export --format json
  beodata export --format ass --out ./subtitles`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("%w (use %s)", err, strings.Join(names, ", "))
			}
			e, s, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			dir := out
			if dir == "" {
				dir = s.Path("exports")
			}
			paths, err := export.Write(cmd.Context(), e, f, dir, export.Options{
				Stem:           stem,
				SecondsPerLine: s.Config.Export.SecondsPerLine,
			})
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			ui.Success(fmt.Sprintf("Wrote %d %s file(s) to %s", len(paths), f, dir))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: "+strings.Join(names, ", "))
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: BEODATA_HOME/exports)")
	cmd.Flags().StringVar(&stem, "stem", "maintext", "Base file name for single-file formats")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query engine as a JSON HTTP API",
		Example: `  beodata serve
  beodata serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			e, s, err := loadEngine(ctx)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = s.Config.Serve.Addr
			}
			return httpapi.New(e, s.Config.Serve.AllowedOrigins).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr from config)")
	return cmd
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-serve",
		Short: "Run beodata as an MCP server",
		Long:  "Start beodata as a Model Context Protocol (MCP) server over stdio, exposing line, dictionary, token, and verse queries as tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			e, _, err := loadEngine(ctx)
			if err != nil {
				return err
			}
			server := beomcp.NewServer(e, version)
			return server.Run(ctx)
		},
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  beodata completion bash > ~/.bashrc.d/beodata\n  beodata completion zsh > ~/.zfunc/_beodata",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
