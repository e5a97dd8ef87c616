package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

var skillsCmd = &cli.Command{
	Name:            "skills",
	HideHelpCommand: true,
	Usage:           "List the segmentation skills offered by the service",
	Action:          cmdSkills,
}

func cmdSkills(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	client, err := apiClient(ctx, cfg)
	if err != nil {
		return err
	}

	skills, err := client.ListSkills(ctx)
	if err != nil {
		return fmt.Errorf("listing skills: %w", err)
	}
	return encode(cmd, skills)
}
