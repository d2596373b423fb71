package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/todoterm/internal/adapters/storage/filestore"
	"github.com/evanschultz/todoterm/internal/adapters/storage/sqlite"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/config"
	"github.com/spf13/cobra"
)

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and store locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := opts.resolve()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", res.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", res.paths.DataDir)
			_, _ = fmt.Fprintf(out, "backend: %s\n", res.backend)
			_, _ = fmt.Fprintf(out, "store: %s\n", res.storeLabel())
			if res.backend == config.BackendSQLite {
				savedAt, err := storeSavedAt(cmd.Context(), res.storePath)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "saved_at: %s\n", savedAt)
			}
			return nil
		},
	}
}

// storeSavedAt reports when the sqlite store was last written. A missing
// store file is not created.
func storeSavedAt(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "never", nil
	}
	repo, err := sqlite.Open(path)
	if err != nil {
		return "", fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		_ = repo.Close()
	}()
	at, err := repo.SavedAt(ctx)
	if errors.Is(err, app.ErrNotFound) {
		return "never", nil
	}
	if err != nil {
		return "", fmt.Errorf("read saved_at: %w", err)
	}
	return at.UTC().Format(time.RFC3339), nil
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			configPath := opts.resolveConfigPath(paths)
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config %q already exists (use --force to overwrite)", configPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat config %q: %w", configPath, err)
			}

			cfg := config.Default()
			if raw := strings.TrimSpace(opts.backend); raw != "" {
				backend, err := config.ParseBackend(raw)
				if err != nil {
					return err
				}
				cfg.Storage.Backend = backend
			}
			cfg.Storage.Path = strings.TrimSpace(opts.storePath)
			if err := config.Save(configPath, cfg); err != nil {
				return fmt.Errorf("write config %q: %w", configPath, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print both lists with their indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "list", func(_ *session, store *app.Store) error {
				out := cmd.OutOrStdout()
				if store.IsEmpty() {
					_, _ = fmt.Fprintln(out, "no tasks")
					return nil
				}
				for i := 0; i < store.Len(); i++ {
					text, err := store.Text(i)
					if err != nil {
						return err
					}
					bullet := "[ ]"
					if store.IsComplete(i) {
						bullet = "[x]"
					}
					_, _ = fmt.Fprintf(out, "%3d %s %s\n", i, bullet, text)
				}
				return nil
			})
		},
	}
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Append an incomplete task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withStore(cmd.Context(), opts, "add", func(_ *session, store *app.Store) error {
				index := store.IncompleteLen()
				if err := store.Add(index, text); err != nil {
					return fmt.Errorf("add task: %w", err)
				}
				if err := store.Save(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %d: %s\n", index, text)
				return nil
			})
		},
	}
}

func newToggleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <index>",
		Short: "Move a task between the incomplete and complete lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse task index %q: %w", args[0], err)
			}
			return withStore(cmd.Context(), opts, "toggle", func(_ *session, store *app.Store) error {
				text, err := store.Text(index)
				if err != nil {
					return fmt.Errorf("toggle task: %w", err)
				}
				wasComplete := store.IsComplete(index)
				newIndex, err := store.Toggle(index)
				if err != nil {
					return fmt.Errorf("toggle task: %w", err)
				}
				if err := store.Save(cmd.Context()); err != nil {
					return err
				}
				verb := "completed"
				if wasComplete {
					verb = "reopened"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %s\n", verb, newIndex, text)
				return nil
			})
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task lists as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "export", func(_ *session, store *app.Store) error {
				encoded, err := filestore.Encode(store.Snapshot(), filestore.FormatJSON)
				if err != nil {
					return fmt.Errorf("encode snapshot json: %w", err)
				}
				if outPath == "-" {
					if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
						return fmt.Errorf("write snapshot to stdout: %w", err)
					}
					return nil
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the task lists from a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			format := filestore.FormatForPath(inPath)
			snap, err := filestore.Decode(content, format)
			if err != nil {
				return fmt.Errorf("decode snapshot %s: %w", format, err)
			}
			sess, err := opts.open("import", false)
			if err != nil {
				return err
			}
			defer sess.Close(opts.stderr)
			if err := sess.repo.Save(cmd.Context(), snap); err != nil {
				sess.logger.Error("command flow failed", "command", "import", "err", err)
				return fmt.Errorf("import snapshot: %w", err)
			}
			sess.logger.Info("command flow complete", "command", "import", "tasks", snap.Len())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks\n", snap.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// withStore opens a session, loads the task list, and runs fn. A store that
// has never been saved loads as empty.
func withStore(ctx context.Context, opts *rootOptions, command string, fn func(*session, *app.Store) error) error {
	sess, err := opts.open(command, false)
	if err != nil {
		return err
	}
	defer sess.Close(opts.stderr)

	store := app.NewStore(sess.repo)
	if err := store.Load(ctx); err != nil && !errors.Is(err, app.ErrNotFound) {
		sess.logger.Error("load failed", "command", command, "err", err)
		return err
	}
	sess.logger.Info("command flow start", "command", command, "tasks", store.Len())
	if err := fn(sess, store); err != nil {
		sess.logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	sess.logger.Info("command flow complete", "command", command)
	return nil
}
