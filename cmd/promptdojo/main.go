package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"promptdojo/internal/app"
	"promptdojo/internal/game"
	"promptdojo/internal/levels"
	"promptdojo/internal/report"
	"promptdojo/internal/state"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootFlags struct {
	envFile   string
	dataDir   string
	logPath   string
	logLevel  string
	ascii     bool
	ephemeral bool
	gateway   string
	style     string
	motion    string
	mouse     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "promptdojo:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:           "promptdojo",
		Short:         "Say What You See: learn to write image prompts by matching a target picture",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("the game needs an interactive terminal; try `promptdojo levels` or `promptdojo progress`")
			}
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&f.dataDir, "data-dir", "", "directory for progress, images and reports")
	pf.StringVar(&f.logPath, "log", "", "write JSON logs to this file")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&f.ephemeral, "ephemeral", false, "keep progress in memory only")
	root.Flags().BoolVar(&f.ascii, "ascii", false, "draw images and borders with ASCII only")
	root.Flags().StringVar(&f.gateway, "gateway", "", "auto, gemini or mock")
	root.Flags().StringVar(&f.style, "style", "", "modern_arcade, cozy_clean, retro_terminal or catppuccin")
	root.Flags().StringVar(&f.motion, "motion", "", "off, reduced or full")
	root.Flags().StringVar(&f.mouse, "mouse", "", "off, scoped or full")

	root.AddCommand(
		newLevelsCmd(),
		newProgressCmd(&f),
		newResetCmd(&f),
		newReportCmd(&f),
		newManCmd(root),
	)
	return root
}

// loadConfig layers defaults, the env file, the environment and finally any
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command, f rootFlags) (app.Config, error) {
	cfg := app.DefaultConfig()
	if err := cfg.LoadEnv(f.envFile); err != nil {
		return cfg, err
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if changed("log") {
		cfg.LogPath = f.logPath
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("ephemeral") {
		cfg.Ephemeral = f.ephemeral
	}
	if changed("ascii") {
		cfg.ASCIIOnly = f.ascii
	}
	if changed("gateway") {
		cfg.Gateway.Kind = f.gateway
	}
	if changed("style") {
		cfg.UI.StyleVariant = f.style
	}
	if changed("motion") {
		cfg.UI.MotionLevel = f.motion
	}
	if changed("mouse") {
		cfg.UI.MouseScope = f.mouse
	}
	return cfg, nil
}

// openStore opens the on-disk progress database for the offline commands.
func openStore(cmd *cobra.Command, f *rootFlags) (*state.SQLiteStore, app.Config, error) {
	cfg, err := loadConfig(cmd, *f)
	if err != nil {
		return nil, cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}
	if cfg.Ephemeral {
		return nil, cfg, errors.New("--ephemeral has no saved progress to read")
	}
	s, err := state.NewSQLite(filepath.Join(cfg.DataDir, app.DBFile))
	if err != nil {
		return nil, cfg, err
	}
	if err := s.EnsureSchema(cmd.Context()); err != nil {
		_ = s.Close()
		return nil, cfg, err
	}
	return s, cfg, nil
}

func loadProgress(ctx context.Context, s state.Store, c *levels.Catalog) state.Progress {
	p, err := s.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	if err := p.Validate(c.MaxID()); err != nil {
		fmt.Fprintln(os.Stderr, "warning: saved progress ignored:", err)
		return state.DefaultProgress()
	}
	return p
}

var (
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a78bfa"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	lockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func styled(w io.Writer, s lipgloss.Style, text string) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return s.Render(text)
	}
	return text
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the built-in levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := levels.Builtin()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styled(out, headStyle, fmt.Sprintf("%s (catalog v%s)", c.Title, c.Version)))
			for _, lvl := range c.Levels {
				fmt.Fprintf(out, "%2d. %s  %s\n", lvl.ID, styled(out, titleStyle, lvl.Title),
					styled(out, dimStyle, lvl.Category+" | "+lvl.Difficulty.String()))
				fmt.Fprintf(out, "    %s\n", lvl.LearningGoal)
			}
			return nil
		},
	}
}

func newProgressCmd(f *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show saved progress and play history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := levels.Builtin()
			if err != nil {
				return err
			}
			s, _, err := openStore(cmd, f)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()
			p := loadProgress(ctx, s, c)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			fmt.Fprintln(out, styled(out, headStyle, fmt.Sprintf("Final accuracy: %d%%", game.FinalAccuracy(p, c.MaxID()))))
			for _, lvl := range c.Levels {
				line := fmt.Sprintf("%2d. %-28s", lvl.ID, lvl.Title)
				switch score, ok := p.Score(lvl.ID); {
				case ok:
					fmt.Fprintln(out, line, styled(out, passStyle, fmt.Sprintf("%3d%%", score)))
				case p.IsUnlocked(lvl.ID):
					fmt.Fprintln(out, line, "open")
				default:
					fmt.Fprintln(out, line, styled(out, lockStyle, "locked"))
				}
			}

			summary, err := s.GetSummary(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s level runs, %s prompts, %s passed\n",
				humanize.Comma(int64(summary.LevelRuns)), humanize.Comma(int64(summary.Attempts)), humanize.Comma(int64(summary.Passes)))
			last, err := s.GetLastRun(ctx)
			if err != nil {
				return err
			}
			if last != nil {
				fmt.Fprintf(out, "Last played level %d %s\n", last.LevelID, humanize.Time(last.StartTS))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw progress record")
	return cmd
}

func newResetCmd(f *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase saved progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := openStore(cmd, f)
			if err != nil {
				return err
			}
			defer s.Close()

			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return errors.New("refusing to reset without --yes on a non-interactive terminal")
				}
				confirm := false
				err := huh.NewConfirm().
					Title("Reset all progress?").
					Description("Every level except the first will be locked again.").
					Affirmative("Reset").
					Negative("Cancel").
					Value(&confirm).
					Run()
				if err != nil {
					return err
				}
				if !confirm {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
					return nil
				}
			}
			if _, err := s.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newReportCmd(f *rootFlags) *cobra.Command {
	var outPath, label string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the journey recap as a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := levels.Builtin()
			if err != nil {
				return err
			}
			s, cfg, err := openStore(cmd, f)
			if err != nil {
				return err
			}
			defer s.Close()
			p := loadProgress(cmd.Context(), s, c)

			if outPath == "" {
				outPath = filepath.Join(cfg.DataDir, "reports", "recap-"+time.Now().Format("20060102-150405")+".pdf")
			}
			if err := report.WriteFile(outPath, c, p, report.Options{PlayerLabel: label}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Report written to", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to the data directory)")
	cmd.Flags().StringVar(&label, "label", "", "player or class label printed in the header")
	return cmd
}

func newManCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Print the man page",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := mcobra.NewManPage(1, root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), page.Build(roff.NewDocument()))
			return err
		},
	}
}
