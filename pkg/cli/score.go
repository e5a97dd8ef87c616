package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/urfave/cli/v3"
)

var (
	sentenceFlag = &cli.StringFlag{
		Name:     "sentence",
		Usage:    "Unpunctuated sentence",
		Required: true,
	}

	answerFlag = &cli.StringFlag{
		Name:     "answer",
		Usage:    "Reference answer (slash separated or punctuated, see --source)",
		Required: true,
	}

	breaksFlag = &cli.IntSliceFlag{
		Name:  "breaks",
		Usage: "Break positions, a break at i falls after character i (e.g. 2,5,9)",
	}

	sourceFlag = &cli.StringFlag{
		Name:  "source",
		Usage: fmt.Sprintf("Exercise source [%s]", sourceNames()),
		Value: string(exercise.SourceManual),
	}

	scoreCmd = &cli.Command{
		Name:            "score",
		HideHelpCommand: true,
		Usage:           "Score one segmentation against a reference answer",
		Flags: []cli.Flag{
			sentenceFlag,
			answerFlag,
			breaksFlag,
			sourceFlag,
		},
		Action: cmdScore,
	}
)

type scoreOutput struct {
	Sentence       string `json:"sentence" yaml:"sentence"`
	Text           string `json:"text" yaml:"text"`
	segment.Result `yaml:",inline"`
}

func cmdScore(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	src, err := exercise.ParseSource(cmd.String(sourceFlag.Name))
	if err != nil {
		return err
	}

	sentence := cmd.String(sentenceFlag.Name)
	chars := segment.Chars(sentence)
	breaks := cmd.IntSlice(breaksFlag.Name)

	r := scoreBreaks(cfg, chars, cmd.String(answerFlag.Name), breaks, src)
	return encode(cmd, &scoreOutput{
		Sentence: sentence,
		Text:     segment.TextFromBreaks(chars, r.UserBreaks, cfg.Config.Marker),
		Result:   r,
	})
}

func scoreBreaks(cfg *appConfig, chars []string, answer string, breaks []int, src exercise.Source) segment.Result {
	m, ok := cfg.Config.Modes[src]
	if !ok {
		m = exercise.DefaultModes()[src]
	}
	return cfg.Config.Scorer().Score(chars, answer, breaks, m)
}

func sourceNames() string {
	list := make([]string, 0, len(exercise.Sources))
	for _, s := range exercise.Sources {
		list = append(list, string(s))
	}
	return strings.Join(list, ", ")
}

func parseSourceOrDefault(s string) (exercise.Source, error) {
	if s == "" {
		return exercise.SourceManual, nil
	}
	src, err := exercise.ParseSource(s)
	if err != nil {
		return "", fmt.Errorf("invalid source: %w", err)
	}
	return src, nil
}
