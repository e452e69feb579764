// Command snapsight is the local development helper: it manages the docker
// compose dependency stack (Postgres, Redis, MinIO), runs the test suite,
// and launches the service binaries with go run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// servicePaths maps run targets to their main package.
var servicePaths = map[string]string{
	"api":      "./cmd/api",
	"worker":   "./cmd/worker",
	"notifier": "./cmd/notifier",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "snapsight: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "snapsight",
		Short:        "SnapSight development helper",
		Long:         "Manages the local dependency stack (Postgres, Redis, MinIO), runs the\ntest suite, and launches the service binaries.",
		SilenceUsage: true,
	}
	root.AddCommand(stackCommand(), testCommand(), runServiceCommand())
	return root
}

// stackCommand groups the docker compose actions for the dependency stack.
// The stack carries only the backing services; the binaries themselves run
// on the host via `snapsight run`.
func stackCommand() *cobra.Command {
	var composeFile string

	stack := &cobra.Command{
		Use:   "stack",
		Short: "Manage the docker compose dependency stack",
	}
	stack.PersistentFlags().StringVarP(&composeFile, "compose-file", "f", "docker-compose.yml", "compose file describing the stack")

	compose := func(ctx context.Context, action ...string) error {
		args := append([]string{"compose", "-f", composeFile}, action...)
		return streamCommand(ctx, "docker", args...)
	}

	var dropVolumes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			action := []string{"down"}
			if dropVolumes {
				action = append(action, "-v")
			}
			return compose(cmd.Context(), action...)
		},
	}
	down.Flags().BoolVar(&dropVolumes, "volumes", false, "remove stack volumes")

	stack.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Start Postgres, Redis and MinIO in the background",
			RunE: func(cmd *cobra.Command, args []string) error {
				return compose(cmd.Context(), "up", "-d")
			},
		},
		down,
		&cobra.Command{
			Use:   "logs [service...]",
			Short: "Follow stack logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return compose(cmd.Context(), append([]string{"logs", "-f"}, args...)...)
			},
		},
		&cobra.Command{
			Use:   "ps",
			Short: "Show stack status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return compose(cmd.Context(), "ps")
			},
		},
	)
	return stack
}

func testCommand() *cobra.Command {
	var race bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run the test suite (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			return streamCommand(cmd.Context(), "go", append(goArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "enable the race detector")
	return cmd
}

func runServiceCommand() *cobra.Command {
	return &cobra.Command{
		Use:       fmt.Sprintf("run <%s>", strings.Join(serviceNames(), "|")),
		Short:     "Launch one service binary with go run",
		Args:      cobra.ExactArgs(1),
		ValidArgs: serviceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := servicePath(args[0])
			if err != nil {
				return err
			}
			return streamCommand(cmd.Context(), "go", "run", path)
		},
	}
}

func servicePath(name string) (string, error) {
	path, ok := servicePaths[name]
	if !ok {
		return "", fmt.Errorf("unknown service %q (one of: %s)", name, strings.Join(serviceNames(), ", "))
	}
	return path, nil
}

func serviceNames() []string {
	names := make([]string, 0, len(servicePaths))
	for name := range servicePaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func streamCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
