package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/zulandar/taskboard/internal/access"
	"github.com/zulandar/taskboard/internal/config"
	"github.com/zulandar/taskboard/internal/options"
	"github.com/zulandar/taskboard/internal/session"
	"golang.org/x/term"
	"gorm.io/gorm"
)

type optionsTarget struct {
	configPath string
	project    string
	user       string
	kind       string
}

func (t *optionsTarget) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.configPath, "config", "c", defaultConfigPath, "path to Taskboard config file")
	cmd.Flags().StringVar(&t.project, "project", "", "project id or identifier (required)")
	cmd.Flags().StringVar(&t.user, "user", "", "user login (required)")
	cmd.Flags().StringVar(&t.kind, "kind", "taskboard", "board kind")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")
}

func newOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Inspect stored board options",
		Long: `Reads or clears the board options a user has saved for a project.
Only the redis and database session backends can be inspected; memory
sessions live inside the running server.`,
	}

	cmd.AddCommand(newOptionsShowCmd())
	cmd.AddCommand(newOptionsClearCmd())
	return cmd
}

func newOptionsShowCmd() *cobra.Command {
	var t optionsTarget
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's saved board options as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptionsShow(cmd, t)
		},
	}
	t.bind(cmd)
	return cmd
}

func newOptionsClearCmd() *cobra.Command {
	var t optionsTarget
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget a user's saved board options",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptionsClear(cmd, t)
		},
	}
	t.bind(cmd)
	return cmd
}

// resolved is what the options commands operate on.
type resolved struct {
	store     *options.Store
	closer    io.Closer
	projectID uint
	userID    uint
}

func openOptions(ctx context.Context, t optionsTarget) (*resolved, error) {
	cfg, gormDB, err := connectFromConfig(t.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Session.Backend == config.BackendMemory {
		return nil, fmt.Errorf("session backend %q keeps options in server memory; nothing to inspect", cfg.Session.Backend)
	}
	return resolveTarget(ctx, cfg, gormDB, t)
}

func resolveTarget(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, t optionsTarget) (*resolved, error) {
	project, err := access.NewProjects(gormDB).Find(ctx, t.project)
	if err != nil {
		return nil, err
	}
	user, err := access.NewUsers(gormDB).FindByLogin(ctx, t.user)
	if err != nil {
		return nil, err
	}
	backend, err := session.Open(cfg.Session, gormDB)
	if err != nil {
		return nil, err
	}
	r := &resolved{store: options.NewStore(backend), projectID: project.ID, userID: user.ID}
	if c, ok := backend.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

func (r *resolved) Close() {
	if r.closer != nil {
		r.closer.Close()
	}
}

func runOptionsShow(cmd *cobra.Command, t optionsTarget) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	r, err := openOptions(ctx, t)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := r.store.Load(ctx, r.projectID, r.userID, t.kind)
	return writeOptions(cmd.OutOrStdout(), opts)
}

// writeOptions prints opts as JSON, indented when out is a terminal.
func writeOptions(out io.Writer, opts options.Options) error {
	var (
		data []byte
		err  error
	)
	if isTerminal(out) {
		data, err = sonic.ConfigStd.MarshalIndent(opts, "", "  ")
	} else {
		data, err = sonic.ConfigStd.Marshal(opts)
	}
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runOptionsClear(cmd *cobra.Command, t optionsTarget) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	r, err := openOptions(ctx, t)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.store.Clear(ctx, r.projectID, r.userID, t.kind); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s options of %s on %s\n", t.kind, t.user, t.project)
	return nil
}
