package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/collider/internal/core/scene"
)

func validateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scene file without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scene.LoadFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d objects, %d entities, %d rules, %d steps\n",
				path, len(cfg.Objects), len(cfg.Entities), len(cfg.Rules), len(cfg.Script))
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "scene", "s", "scene.yaml", "Scene file (.yaml or .json)")

	return cmd
}
