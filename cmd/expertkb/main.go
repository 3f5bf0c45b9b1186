package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pbaille/expertkb/internal/api"
	"github.com/pbaille/expertkb/internal/config"
	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/kb"
	"github.com/pbaille/expertkb/internal/logger"
	"github.com/pbaille/expertkb/internal/questionnaire"
	"github.com/pbaille/expertkb/internal/source"
	"github.com/pbaille/expertkb/internal/store"
	"github.com/pbaille/expertkb/internal/workspace"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "expertkb",
		Short:         "Expert-system knowledge base: questionnaires over rule files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			if err := logger.Initialize(logger.Options{JSON: cfg.Log.JSON, Level: cfg.Log.Level}); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default: nearest "+config.FileName+")")
	flags.String("db", "", "history database path")
	flags.Bool("json-logs", false, "emit JSON logs")
	flags.BoolP("verbose", "v", false, "debug logging")

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(sourcesCmd())

	return rootCmd
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}
	return store.New(cfg.Database.Path)
}

func newReader() *source.Reader {
	return &source.Reader{
		Timeout:  time.Duration(cfg.Source.FetchTimeoutSeconds) * time.Second,
		MaxBytes: cfg.Source.MaxBytes,
	}
}

// sourceArg picks the source location from args or the configured default
func sourceArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Source.Path != "" {
		return cfg.Source.Path, nil
	}
	return "", errors.WithHint(
		errors.New("no knowledge base given"),
		"pass a file or URL, or set source.path in "+config.FileName)
}

// parseSource reads and parses location, rendering syntax errors in place
func parseSource(ctx context.Context, location string) (*domain.DB, error) {
	text, err := newReader().Read(ctx, location)
	if err != nil {
		return nil, err
	}

	db, err := kb.Parse(text)
	if err != nil {
		renderParseError(location, text, err)
		return nil, errors.Wrapf(err, "parse %s", source.Describe(location))
	}
	return db, nil
}

// openWorkspace loads location into a workspace that records history.
// History is best-effort: an unusable database only disables recording.
func openWorkspace(ctx context.Context, location string) (*workspace.Workspace, *store.Store, func(), error) {
	s, err := getStore()
	if err != nil {
		logger.Warnw("History disabled", "path", cfg.Database.Path, "error", err)
		s = nil
	}
	closeFn := func() {
		if s != nil {
			s.Close()
		}
	}

	ws := workspace.New(workspace.Options{Store: s, Reader: newReader()})
	if location == "" {
		return ws, s, closeFn, nil
	}

	if _, err := ws.Load(ctx, location); err != nil {
		var serr *kb.SyntaxError
		if errors.As(err, &serr) {
			// Re-read only to show the offending line
			if text, rerr := newReader().Read(ctx, location); rerr == nil {
				renderParseError(location, text, err)
			}
		}
		closeFn()
		return nil, nil, nil, err
	}
	return ws, s, closeFn, nil
}

// parseAnswers turns Category=Value arguments into answer pairs
func parseAnswers(raw []string) ([]domain.Pair, error) {
	answers := make([]domain.Pair, 0, len(raw))
	for _, a := range raw {
		category, value, ok := strings.Cut(a, "=")
		category = strings.TrimSpace(category)
		value = strings.TrimSpace(value)
		if !ok || category == "" || value == "" {
			return nil, errors.WithHint(
				errors.Newf("invalid answer %q", a),
				"answers are written Category=Value")
		}
		answers = append(answers, domain.Pair{Category: category, Value: value})
	}
	return answers, nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [source]",
		Short: "Check a knowledge base for syntax errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := sourceArg(args)
			if err != nil {
				return err
			}

			db, err := parseSource(cmd.Context(), location)
			if err != nil {
				return err
			}

			pterm.Success.Printfln("%s: %d entries, %d categories, %d questions",
				source.Describe(location), db.Len(), len(db.CategoryNames()), len(db.QuestionCategories()))
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [source]",
		Short: "Show entries, categories and questions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := sourceArg(args)
			if err != nil {
				return err
			}

			db, err := parseSource(cmd.Context(), location)
			if err != nil {
				return err
			}

			return renderDB(db)
		},
	}
}

func resolveCmd() *cobra.Command {
	var (
		target  string
		answers []string
	)

	cmd := &cobra.Command{
		Use:   "resolve [source]",
		Short: "Resolve a set of answers to a conclusion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := sourceArg(args)
			if err != nil {
				return err
			}
			pairs, err := parseAnswers(answers)
			if err != nil {
				return err
			}

			ws, _, closeFn, err := openWorkspace(cmd.Context(), location)
			if err != nil {
				return err
			}
			defer closeFn()

			conclusion, err := ws.Resolve(cmd.Context(), target, pairs)
			if err != nil {
				renderNotFound(ws.DB(), target, err)
				return err
			}

			renderConclusion(target, conclusion)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", kb.NoTarget, "target category")
	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "answer as Category=Value (repeatable)")
	return cmd
}

func askCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "ask [source]",
		Short: "Answer the questionnaire interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := sourceArg(args)
			if err != nil {
				return err
			}

			ws, _, closeFn, err := openWorkspace(cmd.Context(), location)
			if err != nil {
				return err
			}
			defer closeFn()

			form := questionnaire.New(ws.DB())
			if target == "" {
				if target, err = promptTarget(form); err != nil {
					return err
				}
			}
			if err := form.SelectTarget(target); err != nil {
				return err
			}
			if err := promptAnswers(form); err != nil {
				return err
			}

			conclusion, err := ws.Resolve(cmd.Context(), form.Target(), form.Answers())
			if err != nil {
				renderNotFound(ws.DB(), form.Target(), err)
				return err
			}

			renderConclusion(form.Target(), conclusion)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", kb.NoTarget, "target category (prompted when omitted)")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Start the REST API server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			location, _ := sourceArg(args)

			ws, s, closeFn, err := openWorkspace(ctx, location)
			if err != nil {
				return err
			}
			defer closeFn()

			if location == "" {
				if snap, err := ws.Restore(ctx); err == nil {
					pterm.Info.Printfln("Restored %s from history (%d entries)", snap.Location, snap.DB.Len())
				} else if errors.Is(err, errors.ErrNoKnowledgeBase) {
					pterm.Info.Println("No knowledge base loaded; upload one with PUT /kb")
				} else {
					return err
				}
			}

			if watch || cfg.Watch.Enabled {
				if location == "" || source.IsURL(location) {
					pterm.Warning.Println("--watch needs a local file; not watching")
				} else {
					w, err := workspace.NewWatcher(ws, location, time.Duration(cfg.Watch.DebounceMS)*time.Millisecond)
					if err != nil {
						return err
					}
					w.OnReload(func(snap *workspace.Snapshot, err error) {
						if err == nil {
							pterm.Info.Printfln("Reloaded %s (%d entries)", snap.Location, snap.DB.Len())
						}
					})
					w.Start(ctx)
					defer w.Stop()
					pterm.Info.Printfln("Watching %s", location)
				}
			}

			if addr == "" {
				addr = cfg.Server.Addr
			}

			server := api.New(ws, api.Options{
				Addr:           addr,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Store:          s,
				MaxSourceBytes: cfg.Source.MaxBytes,
				Logger:         logger.Named("api"),
			})
			pterm.Success.Printfln("Serving on %s", addr)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config, :8080)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the source file when it changes")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent resolutions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.ListQueries(limit, offset)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				pterm.Info.Println("No queries yet. Use 'expertkb resolve' or 'expertkb ask'.")
				return nil
			}

			return renderHistory(records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of queries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of queries to skip")
	return cmd
}

func sourcesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List recently loaded knowledge bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			sources, err := s.ListSources(limit)
			if err != nil {
				return err
			}

			if len(sources) == 0 {
				pterm.Info.Println("No knowledge bases loaded yet.")
				return nil
			}

			return renderSources(sources)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sources to show")
	cmd.AddCommand(sourceShowCmd())
	return cmd
}

func sourceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a recorded knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			src, err := findSource(s, args[0])
			if err != nil {
				return err
			}

			renderSource(src)
			return nil
		},
	}
}

// findSource looks a source up by id or unique id prefix
func findSource(s *store.Store, id string) (*domain.Source, error) {
	if src, err := s.GetSource(id); err == nil || !errors.IsNotFound(err) {
		return src, err
	}

	// Find by prefix, as listed by 'sources'
	recent, err := s.ListSources(100)
	if err != nil {
		return nil, err
	}
	var match string
	for _, src := range recent {
		if strings.HasPrefix(src.ID, id) {
			if match != "" {
				return nil, errors.WithHint(
					errors.Newf("source id %q is ambiguous", id),
					"give more characters of the id")
			}
			match = src.ID
		}
	}
	if match == "" {
		return nil, errors.Wrapf(errors.ErrNotFound, "source %s", id)
	}
	return s.GetSource(match)
}
