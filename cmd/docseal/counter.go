package main

import (
	"fmt"
	"io"
	"os/user"
	"strconv"
	"time"

	"docseal/internal/domain"
	"docseal/internal/infra/db"
	"docseal/internal/usecase"

	"github.com/spf13/cobra"
)

type counterFlags struct {
	scope   string
	orgUnit string
	year    string
}

func (f *counterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", string(domain.ScopeFakultas), "counter scope (fakultas|prodi)")
	cmd.Flags().StringVar(&f.orgUnit, "org-unit", "", "org unit id, required for prodi")
	cmd.Flags().StringVar(&f.year, "year", strconv.Itoa(time.Now().Year()), "four-digit year")
}

func (f *counterFlags) key() (domain.CounterKey, error) {
	scope, err := domain.ParseScope(f.scope)
	if err != nil {
		return domain.CounterKey{}, err
	}
	key := domain.NewCounterKey(scope, f.orgUnit, f.year)
	return key, key.Validate()
}

func newCounterCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Inspect or reset document numbering counters",
	}
	cmd.AddCommand(
		newCounterPeekCmd(opts),
		newCounterShowCmd(opts),
		newCounterResetCmd(opts),
	)
	return cmd
}

// withCounterAdmin opens the store for a single admin command.
func withCounterAdmin(cmd *cobra.Command, opts *rootOptions, fn func(*usecase.CounterAdmin) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(usecase.NewCounterAdmin(db.NewCounterRepository(store.DB), logger))
}

func newCounterPeekCmd(opts *rootOptions) *cobra.Command {
	flags := &counterFlags{}
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Print the next sequence number without consuming it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			return withCounterAdmin(cmd, opts, func(admin *usecase.CounterAdmin) error {
				next, err := admin.PeekNext(cmd.Context(), key)
				if err != nil {
					return err
				}
				printCounter(cmd.OutOrStdout(), key, "next", next)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newCounterShowCmd(opts *rootOptions) *cobra.Command {
	flags := &counterFlags{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current counter value, creating it at zero if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			return withCounterAdmin(cmd, opts, func(admin *usecase.CounterAdmin) error {
				counter, err := admin.Show(cmd.Context(), key)
				if err != nil {
					return err
				}
				printCounter(cmd.OutOrStdout(), key, "value", counter.Value)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newCounterResetCmd(opts *rootOptions) *cobra.Command {
	flags := &counterFlags{}
	var reason, actor string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a counter to zero and record an audit entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			if actor == "" {
				actor = currentUser()
			}
			return withCounterAdmin(cmd, opts, func(admin *usecase.CounterAdmin) error {
				reset, err := admin.Reset(cmd.Context(), key, actor, reason)
				if err != nil {
					return err
				}
				printCounter(cmd.OutOrStdout(), key, "previous", reset.PreviousValue)
				fmt.Fprintf(cmd.OutOrStdout(), "reset_id=%s\n", reset.ID)
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "why the counter is being reset (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "who is resetting the counter (defaults to the OS user)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func printCounter(w io.Writer, key domain.CounterKey, label string, value int64) {
	fmt.Fprintf(w, "counter=%s %s=%d\n", key.String(), label, value)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}
