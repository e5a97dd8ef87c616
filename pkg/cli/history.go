package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/duanju/pkg/api"
	"github.com/mchmarny/duanju/pkg/data"
	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/urfave/cli/v3"
)

const (
	historyLimitDefault = 20
)

var (
	historyLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of attempts returned",
		Value: historyLimitDefault,
	}

	historySourceFlag = &cli.StringFlag{
		Name:  "source",
		Usage: fmt.Sprintf("Only attempts from this source [%s]", sourceNames()),
	}

	historyExerciseFlag = &cli.Int64Flag{
		Name:  "exercise",
		Usage: "Only attempts of this exercise id",
	}

	historyCmd = &cli.Command{
		Name:            "history",
		HideHelpCommand: true,
		Usage:           "List past attempts, newest first",
		Flags: []cli.Flag{
			historyLimitFlag,
			historySourceFlag,
			historyExerciseFlag,
		},
		Action: cmdHistory,
	}

	statsCmd = &cli.Command{
		Name:            "stats",
		HideHelpCommand: true,
		Usage:           "Summarize attempts per source",
		Action:          cmdStats,
	}

	syncCmd = &cli.Command{
		Name:            "sync",
		HideHelpCommand: true,
		Usage:           "Report attempts the API has not received yet",
		Action:          cmdSync,
	}
)

func cmdHistory(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	q := &data.AttemptCriteria{Limit: cmd.Int(historyLimitFlag.Name)}
	if s := cmd.String(historySourceFlag.Name); s != "" {
		src, err := exercise.ParseSource(s)
		if err != nil {
			return err
		}
		v := string(src)
		q.Source = &v
	}
	if id := cmd.Int64(historyExerciseFlag.Name); id > 0 {
		q.ExerciseID = &id
	}

	list, err := data.ListAttempts(cfg.DB, q)
	if err != nil {
		return fmt.Errorf("listing attempts: %w", err)
	}
	return encode(cmd, list)
}

func cmdStats(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	stats, err := data.GetStats(cfg.DB)
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}
	return encode(cmd, stats)
}

type syncResult struct {
	Pending int `json:"pending" yaml:"pending"`
	Synced  int `json:"synced" yaml:"synced"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
}

func cmdSync(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	client, err := apiClient(ctx, cfg)
	if err != nil {
		return err
	}

	list, err := data.ListAttempts(cfg.DB, &data.AttemptCriteria{Unsynced: true, Limit: -1})
	if err != nil {
		return fmt.Errorf("listing unsynced attempts: %w", err)
	}

	res := &syncResult{Pending: len(list)}
	for _, a := range list {
		if a.Verdict == string(segment.VerdictUnverifiable) {
			res.Skipped++
			continue
		}
		err := client.SaveAnswer(ctx, api.AnswerRecord{
			QuestionID: a.ExerciseID,
			Source:     exercise.Source(a.Source),
			Breaks:     a.UserBreaks,
			Correct:    a.Verdict == string(segment.VerdictCorrect),
		})
		if err != nil {
			slog.Warn("reporting attempt failed", "id", a.ID, "error", err)
			res.Failed++
			continue
		}
		if err := data.MarkSynced(cfg.DB, a.ID); err != nil {
			return fmt.Errorf("marking attempt synced: %w", err)
		}
		res.Synced++
	}

	return encode(cmd, res)
}
