package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/duanju/pkg/data"
	"github.com/urfave/cli/v3"
)

var (
	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:            "reset",
		Usage:           "Delete all recorded attempts and start fresh",
		HideHelpCommand: true,
		Flags:           []cli.Flag{yesFlag},
		Action:          cmdReset,
	}
)

func cmdReset(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	w := writer(cmd)

	if !cmd.Bool(yesFlag.Name) {
		where := cfg.DBPath
		if data.IsPostgres(where) {
			where = "the PostgreSQL database"
		}
		fmt.Fprintf(w, "This will permanently delete all attempts in %s\n", where)
		fmt.Fprint(w, "Are you sure? [y/N]: ")

		answer, err := bufio.NewReader(reader(cmd)).ReadString('\n')
		if err != nil && answer == "" {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	n, err := data.DeleteAttempts(cfg.DB)
	if err != nil {
		return fmt.Errorf("deleting attempts: %w", err)
	}

	slog.Info("attempts deleted", "count", n)
	fmt.Fprintln(w, "Reset complete.")
	return nil
}
