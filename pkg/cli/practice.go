package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mchmarny/duanju/pkg/api"
	"github.com/mchmarny/duanju/pkg/data"
	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const practiceHelp = `commands:
  t <i> [i...]  toggle the break after character i
  s             submit
  r             reset breaks
  n / p         next / previous exercise
  more          generate more AI exercises
  ?             help
  q             quit`

var (
	skillFlag = &cli.StringSliceFlag{
		Name:  "skill",
		Usage: "Skill id to practice, repeat for more (default: last practiced skill)",
	}

	offlineFlag = &cli.BoolFlag{
		Name:  "offline",
		Usage: "Practice the bundled sample exercises without calling the API",
	}

	practiceCmd = &cli.Command{
		Name:            "practice",
		HideHelpCommand: true,
		Usage:           "Interactively segment a set of exercises",
		Flags: []cli.Flag{
			skillFlag,
			sourceFlag,
			offlineFlag,
		},
		Action: cmdPractice,
	}
)

type practice struct {
	cmd    *cli.Command
	cfg    *appConfig
	client *api.Client
	scorer *segment.Scorer
	batch  *exercise.Batch
	skills []api.Skill
	out    io.Writer
	pos    int
	more   int
}

func cmdPractice(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	src, err := exercise.ParseSource(cmd.String(sourceFlag.Name))
	if err != nil {
		return err
	}

	p := &practice{
		cmd:    cmd,
		cfg:    cfg,
		scorer: cfg.Config.Scorer(),
		out:    writer(cmd),
	}

	if cmd.Bool(offlineFlag.Name) {
		if err := p.loadSamples(src); err != nil {
			return err
		}
	} else {
		if err := p.load(ctx, src, cmd.StringSlice(skillFlag.Name)); err != nil {
			return err
		}
	}

	if p.batch.Len() == 0 {
		fmt.Fprintln(p.out, "No exercises available.")
		return nil
	}

	fmt.Fprintln(p.out, practiceHelp)
	p.show()
	return p.loop(ctx, reader(cmd))
}

func (p *practice) load(ctx context.Context, src exercise.Source, ids []string) error {
	if len(ids) == 0 && p.cfg.Session.LastSkill != "" {
		ids = []string{p.cfg.Session.LastSkill}
	}

	client, err := apiClient(ctx, p.cfg)
	if err != nil {
		return err
	}
	p.client = client

	if len(ids) == 0 {
		skills, err := client.ListSkills(ctx)
		if err != nil {
			slog.Warn("listing skills failed, using sample exercises", "error", err)
			return p.loadSamples(src)
		}
		if len(skills) == 0 {
			return errors.New("no skills available")
		}
		ids = []string{skills[0].ID.String()}
	}

	for _, id := range ids {
		p.skills = append(p.skills, api.Skill{ID: api.FlexString(id)})
	}

	b, err := client.FetchAll(ctx, p.skills, src)
	if err != nil {
		slog.Warn("fetching exercises failed, using sample exercises", "error", err)
		return p.loadSamples(src)
	}
	p.batch = b

	p.cfg.Session.LastSkill = ids[len(ids)-1]
	if err := p.cfg.Session.Save(p.cfg.Store); err != nil {
		slog.Warn("saving session failed", "error", err)
	}
	return nil
}

func (p *practice) loadSamples(src exercise.Source) error {
	list, err := api.Samples(src)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}
	p.batch, _ = exercise.NewBatch(src, list)
	return nil
}

func (p *practice) current() *exercise.Exercise {
	return p.batch.Exercises[p.pos]
}

func (p *practice) show() {
	e := p.current()
	fmt.Fprintf(p.out, "\n[%d/%d] #%d (%s, %s)\n", p.pos+1, p.batch.Len(), e.ID, e.Source, e.State())
	if e.Difficulty != "" {
		fmt.Fprintf(p.out, "difficulty: %s\n", e.Difficulty)
	}
	var sb strings.Builder
	for i, c := range e.Chars() {
		fmt.Fprintf(&sb, "%d:%s ", i, c)
	}
	fmt.Fprintln(p.out, strings.TrimSpace(sb.String()))
	fmt.Fprintln(p.out, e.Text(p.cfg.Config.Marker))
}

func (p *practice) loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, "> ")
		if !sc.Scan() {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit", "exit":
			return p.finish()
		case "t", "toggle":
			p.toggle(fields[1:])
		case "s", "submit":
			p.submit(ctx)
		case "r", "reset":
			p.current().Reset()
			p.show()
		case "n", "next":
			p.move(1)
		case "p", "prev":
			p.move(-1)
		case "more":
			p.generate(ctx)
		case "?", "h", "help":
			fmt.Fprintln(p.out, practiceHelp)
		default:
			fmt.Fprintf(p.out, "unknown command %q, ? for help\n", fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return p.finish()
}

func (p *practice) toggle(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(p.out, "usage: t <i> [i...]")
		return
	}
	e := p.current()
	for _, a := range args {
		i, err := strconv.Atoi(a)
		if err != nil {
			fmt.Fprintf(p.out, "not a position: %q\n", a)
			continue
		}
		if err := e.Toggle(i); err != nil {
			fmt.Fprintf(p.out, "%v\n", err)
		}
	}
	fmt.Fprintln(p.out, e.Text(p.cfg.Config.Marker))
	if e.Stale() {
		fmt.Fprintln(p.out, "(changed since last submit)")
	}
}

func (p *practice) submit(ctx context.Context) {
	e := p.current()
	r := e.Submit(p.scorer, p.cfg.Config.Modes)

	switch r.Verdict {
	case segment.VerdictCorrect:
		fmt.Fprintln(p.out, "Correct!")
	case segment.VerdictIncorrect:
		fmt.Fprintf(p.out, "Not quite. missing: %v extra: %v\n", r.Missing, r.Extra)
		fmt.Fprintf(p.out, "answer: %s\n", segment.TextFromBreaks(e.Chars(), r.CanonicalBreaks, p.cfg.Config.Marker))
	default:
		fmt.Fprintln(p.out, "This exercise's reference answer could not be checked.")
	}
	if e.Analysis != "" {
		fmt.Fprintf(p.out, "analysis: %s\n", e.Analysis)
	}

	if err := recordAttempt(ctx, p.cfg, p.client, e, r); err != nil {
		slog.Error("saving attempt failed", "error", err)
	}
}

// recordAttempt stores the attempt locally and reports it to the API at the
// same time. Remote failures are logged and leave the attempt unsynced.
func recordAttempt(ctx context.Context, cfg *appConfig, client *api.Client, e *exercise.Exercise, r segment.Result) error {
	a := data.NewAttempt(e, r)
	synced := false

	var g errgroup.Group
	g.Go(func() error {
		return data.SaveAttempt(cfg.DB, a)
	})
	if client != nil && r.Verifiable() {
		g.Go(func() error {
			err := client.SaveAnswer(ctx, api.AnswerRecord{
				QuestionID: e.ID,
				Source:     e.Source,
				Breaks:     r.UserBreaks,
				Correct:    r.IsCorrect,
			})
			if err != nil {
				slog.Warn("reporting answer failed", "question", e.ID, "error", err)
				return nil
			}
			synced = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if synced {
		return data.MarkSynced(cfg.DB, a.ID)
	}
	return nil
}

func (p *practice) move(d int) {
	next := p.pos + d
	if next < 0 || next >= p.batch.Len() {
		fmt.Fprintln(p.out, "no more exercises in that direction")
		return
	}
	p.pos = next
	p.show()
}

func (p *practice) generate(ctx context.Context) {
	if p.client == nil || len(p.skills) == 0 {
		fmt.Fprintln(p.out, "generating exercises needs the API, run without --offline")
		return
	}

	skill := p.skills[p.more%len(p.skills)]
	list, err := p.client.GenerateMore(ctx, skill, p.batch.Source)
	if err != nil {
		var locked *api.LockedError
		if errors.As(err, &locked) {
			fmt.Fprintln(p.out, locked.Error())
			return
		}
		slog.Error("generating exercises failed", "skill", skill.ID, "error", err)
		return
	}
	p.more++

	before := p.batch.Len()
	p.batch.Append(list)
	fmt.Fprintf(p.out, "added %d exercises\n", p.batch.Len()-before)
}

func (p *practice) finish() error {
	return encode(p.cmd, p.batch.Summary())
}
