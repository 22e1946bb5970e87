// Command synchdbctl is the cobra-based admin CLI for the spec §6
// admin surface, talking to a running synchdb daemon over HTTP.
// Grounded on the teacher's cmd/cli package: one cobra.Command per
// verb, a thin HTTP client, and a system-keyring-first credential
// stash (pkg/keyring) so add_conninfo never needs a password on the
// command line.
package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/hornetlabs/synchdb/internal/ctlclient"
)

const keyringService = "synchdb"

var daemonAddr string

func main() {
	root := &cobra.Command{
		Use:   "synchdbctl",
		Short: "Admin CLI for the synchdb ingestion daemon",
	}
	root.PersistentFlags().StringVar(&daemonAddr, "addr", "http://localhost:8089", "daemon admin API base URL")

	root.AddCommand(
		newAddConnInfoCmd(),
		newDeleteConnInfoCmd(),
		newStartCmd(),
		newStopCmd(),
		newPauseCmd(),
		newResumeCmd(),
		newSetOffsetCmd(),
		newObjMapCmd(),
		newExtraConnInfoCmd(),
		newStatusCmd(),
		newListCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "synchdbctl:", err)
		os.Exit(1)
	}
}

func client() *ctlclient.Client { return ctlclient.New(daemonAddr) }

// reportf prints a verb's status response the way the server returns
// it: the raw integer status code, since spec §6 only defines "an
// integer status" with no shared vocabulary of named outcomes across
// verbs.
func reportf(name string, resp ctlclient.StatusResponse, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("%s: status=%d\n", name, resp.Status)
	return nil
}

func newAddConnInfoCmd() *cobra.Command {
	var (
		flavor, host, database, destDatabase, snapshotMode, errorStrategy, ruleFile, user string
		port                                                                              int
		sqlMode                                                                           bool
	)
	cmd := &cobra.Command{
		Use:   "add-conninfo <name>",
		Short: "Register a new connector (admin verb add_conninfo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			password, err := promptPassword()
			if err != nil {
				return err
			}
			if err := keyring.Set(keyringService, name, password); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not stash credential in system keyring: %v\n", err)
			}

			cfg := map[string]interface{}{
				"Name":                name,
				"SourceFlavor":        flavor,
				"Host":                host,
				"Port":                port,
				"User":                user,
				"Credential":          password,
				"SourceDatabase":      database,
				"DestinationDatabase": destDatabase,
				"SnapshotMode":        snapshotMode,
				"ErrorStrategy":       errorStrategy,
				"SQLMode":             sqlMode,
				"rule_file":           ruleFile,
			}
			return reportf("add_conninfo", mustAddConnInfo(cfg))
		},
	}
	cmd.Flags().StringVar(&flavor, "source-flavor", "", "source flavor: mysql|sqlserver|oracle")
	cmd.Flags().StringVar(&host, "host", "", "source host")
	cmd.Flags().IntVar(&port, "port", 0, "source port")
	cmd.Flags().StringVar(&user, "user", "", "source user")
	cmd.Flags().StringVar(&database, "source-database", "", "source database name")
	cmd.Flags().StringVar(&destDatabase, "destination-database", "", "destination database/schema name")
	cmd.Flags().StringVar(&snapshotMode, "snapshot-mode", "initial", "snapshot mode")
	cmd.Flags().StringVar(&errorStrategy, "error-strategy", "skip_on_error", "error strategy")
	cmd.Flags().StringVar(&ruleFile, "rule-file", "", "path to the JSON rule file")
	cmd.Flags().BoolVar(&sqlMode, "sql-mode", false, "emit textual SQL instead of tuple-mode apply")
	return cmd
}

func mustAddConnInfo(cfg map[string]interface{}) (ctlclient.StatusResponse, error) {
	return client().AddConnInfo(cfg)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Source password: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func newDeleteConnInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-conninfo <name>",
		Short: "Remove a stopped connector (admin verb delete_conninfo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.Delete(keyringService, args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not remove stashed credential: %v\n", err)
			}
			return reportf("delete_conninfo", client().DeleteConnInfo(args[0]))
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <name>",
		Short: "Start a connector (admin verb start)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("start", client().Start(args[0]))
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a connector (admin verb stop)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("stop", client().Stop(args[0]))
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <name>",
		Short: "Pause a connector (admin verb pause)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("pause", client().Pause(args[0]))
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <name>",
		Short: "Resume a paused connector (admin verb resume)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("resume", client().Resume(args[0]))
		},
	}
}

func newSetOffsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-offset <name> <offset>",
		Short: "Set a paused connector's resume offset (admin verb set_offset)",
		Long:  `Requires the connector to already be in the Paused state.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("set_offset", client().SetOffset(args[0], args[1]))
		},
	}
}

func newObjMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objmap",
		Short: "Manage name-map overrides (admin verbs add_objmap/delete_objmap)",
	}

	var objectType string

	add := &cobra.Command{
		Use:   "add <name> <source-object> <destination-object>",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("add_objmap", client().AddObjMap(args[0], objectType, args[1], args[2]))
		},
	}
	add.Flags().StringVar(&objectType, "type", "table", "object_type: table|column")

	del := &cobra.Command{
		Use:   "delete <name> <source-object>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("delete_objmap", client().DeleteObjMap(args[0], objectType, args[1]))
		},
	}
	del.Flags().StringVar(&objectType, "type", "table", "object_type: table|column")

	cmd.AddCommand(add, del)
	return cmd
}

func newExtraConnInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extra-conninfo",
		Short: "Manage extra connection parameters (admin verbs add_extra_conninfo/delete_extra_conninfo)",
	}

	add := &cobra.Command{
		Use:  "add <name> <key> <value>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("add_extra_conninfo", client().AddExtraConnInfo(args[0], args[1], args[2]))
		},
	}
	del := &cobra.Command{
		Use:  "delete <name> <key>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportf("delete_extra_conninfo", client().DeleteExtraConnInfo(args[0], args[1]))
		},
	}

	cmd.AddCommand(add, del)
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show a connector's full status snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := client().Status(args[0])
			if err != nil {
				return err
			}
			for k, v := range snap {
				fmt.Printf("%-20s %v\n", k, v)
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered connector",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := client().List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}
