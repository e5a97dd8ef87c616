// Package api is a client for the remote sentence-breaking service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mchmarny/duanju/pkg/config"
	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/net"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	skillsPath         = "/api/sentence-breaking/skills"
	skillQuestionsPath = "/api/sentence-breaking/skills-questions"
	generatePath       = "/api/sentence-breaking/generate-questions"
	answerPath         = "/api/sentence-breaking/answer"
)

var ErrSkillRequired = errors.New("skill id required")

// Client talks to the sentence-breaking API.
type Client struct {
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	concurrency int
}

// NewClient creates a client for cfg.APIURL authenticated with token.
func NewClient(ctx context.Context, cfg *config.Config, token string) *Client {
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.GenerateLock > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.GenerateLock), 1)
	}
	conc := cfg.FetchConcurrency
	if conc < 1 {
		conc = 1
	}
	return &Client{
		baseURL:     cfg.APIURL,
		http:        net.GetOAuthClient(ctx, token, cfg.Timeout),
		limiter:     lim,
		concurrency: conc,
	}
}

func (c *Client) url(path string, q url.Values) string {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// ListSkills returns the available segmentation skills.
func (c *Client) ListSkills(ctx context.Context) ([]Skill, error) {
	var env envelope[[]Skill]
	if err := net.GetJSON(ctx, c.http, c.url(skillsPath, nil), &env); err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	if err := env.check(skillsPath); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// SkillQuestions returns the curated question set of a skill.
func (c *Client) SkillQuestions(ctx context.Context, skillID string) ([]exercise.Record, error) {
	if skillID == "" {
		return nil, ErrSkillRequired
	}
	var env envelope[questionList]
	u := c.url(skillQuestionsPath, url.Values{"id": {skillID}})
	if err := net.GetJSON(ctx, c.http, u, &env); err != nil {
		return nil, fmt.Errorf("getting questions for skill %s: %w", skillID, err)
	}
	if err := env.check(skillQuestionsPath); err != nil {
		return nil, err
	}
	return validRecords(env.Data.List), nil
}

// GenerateQuestions asks the service to generate a new question set for a
// skill.
func (c *Client) GenerateQuestions(ctx context.Context, skill Skill) ([]exercise.Record, error) {
	return c.generate(ctx, skill, skill)
}

// GenerateMore asks for more questions of the given source behind the
// generate lock: at most one call per configured lock period. Manual sets
// are requested by skill id, AI sets with the whole skill.
func (c *Client) GenerateMore(ctx context.Context, skill Skill, src exercise.Source) ([]exercise.Record, error) {
	var body any
	switch src {
	case exercise.SourceAI:
		body = skill
	case exercise.SourceManual:
		body = generateRequest{SkillID: skill.ID}
	default:
		return nil, fmt.Errorf("unsupported source: %q", src)
	}
	if skill.ID == "" {
		return nil, ErrSkillRequired
	}

	r := c.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return nil, &LockedError{RetryAfter: d}
	}
	return c.generate(ctx, skill, body)
}

func (c *Client) generate(ctx context.Context, skill Skill, body any) ([]exercise.Record, error) {
	if skill.ID == "" {
		return nil, ErrSkillRequired
	}
	var env envelope[questionList]
	if err := net.DoJSON(ctx, c.http, http.MethodPost, c.url(generatePath, nil), body, &env); err != nil {
		return nil, fmt.Errorf("generating questions for skill %s: %w", skill.ID, err)
	}
	if err := env.check(generatePath); err != nil {
		return nil, err
	}
	return validRecords(env.Data.List), nil
}

// Fetch returns the question set of a skill for the given source.
func (c *Client) Fetch(ctx context.Context, skill Skill, src exercise.Source) ([]exercise.Record, error) {
	switch src {
	case exercise.SourceAI:
		return c.GenerateQuestions(ctx, skill)
	case exercise.SourceManual:
		return c.SkillQuestions(ctx, skill.ID.String())
	default:
		return nil, fmt.Errorf("unsupported source: %q", src)
	}
}

// FetchAll fetches the sets of several skills concurrently and returns them
// as one batch in skill order.
func (c *Client) FetchAll(ctx context.Context, skills []Skill, src exercise.Source) (*exercise.Batch, error) {
	results := make([][]exercise.Record, len(skills))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, s := range skills {
		g.Go(func() error {
			start := time.Now()
			list, err := c.Fetch(gctx, s, src)
			if err != nil {
				return err
			}
			slog.Debug("fetched questions", "skill", s.ID, "source", src, "count", len(list), "duration", time.Since(start).String())
			results[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []exercise.Record
	for _, list := range results {
		all = append(all, list...)
	}
	b, _ := exercise.NewBatch(src, all)
	return b, nil
}

// SaveAnswer reports a scored submission.
func (c *Client) SaveAnswer(ctx context.Context, a AnswerRecord) error {
	req, err := a.request()
	if err != nil {
		return err
	}
	var env envelope[any]
	if err := net.DoJSON(ctx, c.http, http.MethodPost, c.url(answerPath, nil), req, &env); err != nil {
		return fmt.Errorf("saving answer for question %d: %w", a.QuestionID, err)
	}
	return env.check(answerPath)
}

func validRecords(list []exercise.Record) []exercise.Record {
	out := make([]exercise.Record, 0, len(list))
	for i := range list {
		if err := list[i].Validate(); err != nil {
			slog.Warn("dropping invalid question from API", "error", err)
			continue
		}
		out = append(out, list[i])
	}
	return out
}
