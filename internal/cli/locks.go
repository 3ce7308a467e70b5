package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/shared"
)

// LockEntry describes one held lock for CLI output.
type LockEntry struct {
	Name     string         `json:"name"`
	Owner    string         `json:"owner"`
	Age      string         `json:"age"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// LockList is the payload of `weft locks list`.
type LockList struct {
	Namespace string      `json:"namespace"`
	Locks     []LockEntry `json:"locks"`
}

// CleanupResult is the payload of `weft locks cleanup`.
type CleanupResult struct {
	Namespace string `json:"namespace"`
	Removed   int    `json:"removed"`
}

// NewLocksCommand creates the locks command group.
func NewLocksCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		storePath    string
		namespace    string
		staleTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Inspect the shared coordination store",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", "", "path to the shared SQLite store (required)")
	cmd.PersistentFlags().StringVar(&namespace, "namespace", "weft", "coordination namespace")
	cmd.PersistentFlags().DurationVar(&staleTimeout, "stale-timeout", shared.DefaultStaleLockTimeout,
		"age after which a lock counts as stale")
	_ = cmd.MarkPersistentFlagRequired("store")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List held locks in a namespace",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(rootOpts, cmd, storePath, namespace, staleTimeout, runLocksList)
		},
	}

	cleanup := &cobra.Command{
		Use:           "cleanup",
		Short:         "Remove stale locks from a namespace",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(rootOpts, cmd, storePath, namespace, staleTimeout, runLocksCleanup)
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(cleanup)
	return cmd
}

// withManager opens the store, builds a manager for the namespace, and
// hands both to the subcommand body.
func withManager(opts *RootOptions, cmd *cobra.Command, storePath, namespace string,
	staleTimeout time.Duration, fn func(*OutputFormatter, *shared.Manager, string) error) error {

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	storage, err := shared.OpenSQLite(storePath)
	if err != nil {
		if outErr := formatter.Error("E005", fmt.Sprintf("opening store: %v", err), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer storage.Close()

	manager := shared.NewManager(
		shared.WithNamespace(namespace),
		shared.WithStorage(storage),
		shared.WithStaleLockTimeout(staleTimeout),
	)
	formatter.VerboseLog("Opened store %s, namespace %q", storePath, manager.Namespace())

	return fn(formatter, manager, namespace)
}

func runLocksList(f *OutputFormatter, manager *shared.Manager, namespace string) error {
	names, err := manager.ListLocks()
	if err != nil {
		return WrapExitError(ExitCommandError, "listing locks", err)
	}

	list := LockList{Namespace: namespace, Locks: []LockEntry{}}
	for _, name := range names {
		info, found, err := manager.GetLockInfo(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading lock info", err)
		}
		if !found {
			continue
		}
		list.Locks = append(list.Locks, LockEntry{
			Name:     info.Name,
			Owner:    info.OwnerID,
			Age:      info.Age.Round(time.Millisecond).String(),
			Metadata: info.Metadata,
		})
	}

	if f.Format == "json" {
		return f.Success(list)
	}
	if len(list.Locks) == 0 {
		fmt.Fprintf(f.Writer, "No locks held in namespace %q\n", namespace)
		return nil
	}
	for _, entry := range list.Locks {
		fmt.Fprintf(f.Writer, "%s\towner=%s\tage=%s\n", entry.Name, entry.Owner, entry.Age)
	}
	return nil
}

func runLocksCleanup(f *OutputFormatter, manager *shared.Manager, namespace string) error {
	removed, err := manager.CleanupStaleLocks()
	if err != nil {
		return WrapExitError(ExitCommandError, "cleaning up locks", err)
	}

	if f.Format == "json" {
		return f.Success(CleanupResult{Namespace: namespace, Removed: removed})
	}
	fmt.Fprintf(f.Writer, "Removed %d stale lock(s) from namespace %q\n", removed, namespace)
	return nil
}
