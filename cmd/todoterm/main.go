package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/todoterm/internal/adapters/clipboard"
	"github.com/evanschultz/todoterm/internal/adapters/storage/filestore"
	"github.com/evanschultz/todoterm/internal/adapters/storage/sqlite"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/config"
	"github.com/evanschultz/todoterm/internal/platform"
	"github.com/evanschultz/todoterm/internal/tui"
	"github.com/spf13/cobra"
)

// version is overridden at build time.
var version = "dev"

// program is the subset of tea.Program that run needs.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the terminal program. Tests replace it.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	// fang has already printed the error.
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree for args.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds the persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	storePath  string
	backend    string
	appName    string
	devMode    bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TODOTERM_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultAppName := "todoterm"
	if envApp := strings.TrimSpace(os.Getenv("TODOTERM_APP_NAME")); envApp != "" {
		defaultAppName = envApp
	}

	root := &cobra.Command{
		Use:          "todoterm",
		Short:        "A modal terminal task list",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.storePath, "store", "", "path to the task store")
	flags.StringVar(&opts.backend, "backend", "", "storage backend: json, yaml, sqlite, or memory")
	flags.StringVar(&opts.appName, "app", defaultAppName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newInitCommand(opts),
		newPathsCommand(opts),
		newListCommand(opts),
		newAddCommand(opts),
		newToggleCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
	)
	return root
}

// resolved is the configuration and store location for one invocation.
type resolved struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	backend    config.Backend
	storePath  string
}

// session is a resolved invocation with its logger and open repository.
type session struct {
	resolved
	appName   string
	logger    *runtimeLogger
	repo      app.Repository
	closeRepo func() error
}

// resolvePaths applies the app name and dev mode flags.
func (o *rootOptions) resolvePaths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolveConfigPath prefers --config, then TODOTERM_CONFIG, then the platform default.
func (o *rootOptions) resolveConfigPath(paths platform.Paths) string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("TODOTERM_CONFIG")); p != "" {
		return p
	}
	return paths.ConfigPath
}

// resolve loads config and settles the backend and store path.
func (o *rootOptions) resolve() (resolved, error) {
	paths, err := o.resolvePaths()
	if err != nil {
		return resolved{}, err
	}
	configPath := o.resolveConfigPath(paths)
	cfg, err := config.Load(configPath, config.Default())
	if err != nil {
		return resolved{}, fmt.Errorf("load config %q: %w", configPath, err)
	}

	backend := cfg.BackendOrDefault()
	if raw := strings.TrimSpace(o.backend); raw != "" {
		backend, err = config.ParseBackend(raw)
		if err != nil {
			return resolved{}, err
		}
	}
	return resolved{
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		backend:    backend,
		storePath:  resolveStorePath(o.storePath, cfg, backend, paths),
	}, nil
}

// open resolves the invocation, configures logging, and opens the repository.
func (o *rootOptions) open(command string, tuiMode bool) (*session, error) {
	res, err := o.resolve()
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, res.cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if tuiMode {
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", res.configPath, "data_dir", res.paths.DataDir, "store_path", res.storePath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening repository", "backend", res.backend, "path", res.storePath)
	repo, closeRepo, err := openRepository(res.backend, res.storePath)
	if err != nil {
		logger.Error("repository open failed", "backend", res.backend, "path", res.storePath, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open %s repository: %w", res.backend, err)
	}

	return &session{
		resolved:  res,
		appName:   o.appName,
		logger:    logger,
		repo:      repo,
		closeRepo: closeRepo,
	}, nil
}

// Close releases the repository and the dev log file.
func (s *session) Close(stderr io.Writer) {
	if s.closeRepo != nil {
		if err := s.closeRepo(); err != nil {
			s.logger.Warn("repository close failed", "backend", s.backend, "err", err)
		}
	}
	if err := s.logger.Close(); err != nil && s.logger.shouldLogToSink(s.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// storeLabel is the header text shown for the active store.
func (r resolved) storeLabel() string {
	if r.backend == config.BackendMemory {
		return "memory"
	}
	return r.storePath
}

// resolveStorePath prefers --store, then TODOTERM_STORE, then storage.path,
// then the platform data dir.
func resolveStorePath(flagPath string, cfg config.Config, backend config.Backend, paths platform.Paths) string {
	if backend == config.BackendMemory {
		return ""
	}
	for _, candidate := range []string{flagPath, os.Getenv("TODOTERM_STORE"), cfg.Storage.Path} {
		if p := strings.TrimSpace(candidate); p != "" {
			return p
		}
	}
	return paths.StorePath(storeExtension(backend))
}

func storeExtension(backend config.Backend) string {
	switch backend {
	case config.BackendYAML:
		return filestore.FormatYAML.Extension()
	case config.BackendSQLite:
		return ".db"
	default:
		return filestore.FormatJSON.Extension()
	}
}

// openRepository builds the repository for backend. The returned close func
// is nil for backends that hold no resources.
func openRepository(backend config.Backend, path string) (app.Repository, func() error, error) {
	switch backend {
	case config.BackendJSON, config.BackendYAML:
		format, err := filestore.ParseFormat(string(backend))
		if err != nil {
			return nil, nil, err
		}
		repo, err := filestore.New(path, format)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case config.BackendSQLite:
		repo, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.BackendMemory:
		repo, err := sqlite.OpenInMemory()
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend %q", backend)
	}
}

// runTUI starts the interactive program against the configured store.
func runTUI(ctx context.Context, opts *rootOptions) error {
	sess, err := opts.open("tui", true)
	if err != nil {
		return err
	}
	defer sess.Close(opts.stderr)
	logger := sess.logger

	dispatcherCfg, err := dispatcherConfig(sess.cfg)
	if err != nil {
		return err
	}
	tickInterval, err := sess.cfg.TickInterval()
	if err != nil {
		return err
	}

	dispatcherOpts := []app.DispatcherOption{app.WithLogger(logger)}
	if sess.cfg.Clipboard.Enabled {
		if !clipboard.Available() {
			logger.Warn("clipboard enabled but no system clipboard was found")
		}
		dispatcherOpts = append(dispatcherOpts, app.WithClipboard(clipboard.NewSystem()))
	}
	dispatcher := app.NewDispatcher(app.NewStore(sess.repo), dispatcherCfg, dispatcherOpts...)
	logger.Debug("dispatcher initialized", "chord_timeout_ticks", dispatcherCfg.ChordTimeoutTicks, "tick_interval", tickInterval)

	m := tui.NewModel(
		dispatcher,
		tui.WithContext(ctx),
		tui.WithTickInterval(tickInterval),
		tui.WithAppName(sess.appName),
		tui.WithStoreLabel(sess.storeLabel()),
	)
	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// dispatcherConfig maps the input and keys config sections onto the dispatcher.
func dispatcherConfig(cfg config.Config) (app.DispatcherConfig, error) {
	modes, err := cfg.ChordModeList()
	if err != nil {
		return app.DispatcherConfig{}, err
	}
	return app.DispatcherConfig{
		ChordTimeoutTicks: cfg.Input.ChordTimeoutTicks,
		ActionResetTicks:  cfg.Input.ActionResetTicks,
		ChordModes:        modes,
		Keys:              cfg.KeyOverrides(),
	}, nil
}

// parseBoolEnv reads a boolean environment variable. ok is false when the
// variable is unset or unparseable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
