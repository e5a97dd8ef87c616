package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/duanju/pkg/session"
	"github.com/urfave/cli/v3"
)

var (
	authTokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "API token issued by the sentence-breaking service",
	}

	authGradeFlag = &cli.StringFlag{
		Name:  "grade",
		Usage: "Grade id to remember for this learner",
	}

	authClearFlag = &cli.BoolFlag{
		Name:  "clear",
		Usage: "Remove the stored token and session preferences",
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store or clear the API token and learner preferences",
		Flags: []cli.Flag{
			authTokenFlag,
			authGradeFlag,
			authClearFlag,
		},
		Action: cmdAuth,
	}
)

type authStatus struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Token         string `json:"token,omitempty" yaml:"token,omitempty"`
	GradeID       string `json:"grade_id,omitempty" yaml:"grade_id,omitempty"`
	LastSkill     string `json:"last_skill,omitempty" yaml:"last_skill,omitempty"`
}

func cmdAuth(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if cmd.Bool(authClearFlag.Name) {
		if err := session.Clear(cfg.Store); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		cfg.Session = &session.Session{}
		fmt.Fprintln(writer(cmd), "Session cleared")
		return nil
	}

	token, grade := cmd.String(authTokenFlag.Name), cmd.String(authGradeFlag.Name)
	if token != "" || grade != "" {
		if token != "" {
			cfg.Session.Token = token
		}
		if grade != "" {
			cfg.Session.GradeID = grade
		}
		if err := cfg.Session.Save(cfg.Store); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		if token != "" {
			fmt.Fprintln(writer(cmd), "Token saved")
		}
		if grade != "" {
			fmt.Fprintf(writer(cmd), "Grade set to %s\n", grade)
		}
		return nil
	}

	return encode(cmd, &authStatus{
		Authenticated: cfg.Session.Authenticated(),
		Token:         maskToken(cfg.Session.Token),
		GradeID:       cfg.Session.GradeID,
		LastSkill:     cfg.Session.LastSkill,
	})
}

func maskToken(t string) string {
	switch {
	case t == "":
		return ""
	case len(t) <= 8:
		return "****"
	default:
		return t[:4] + "****" + t[len(t)-4:]
	}
}
