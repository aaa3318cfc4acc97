package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/querysync/internal/config"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default querysync.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func runInit(dir string, force bool) error {
	if config.Exists(dir) && !force {
		return fmt.Errorf("%s already exists in %s (use --force to overwrite)", config.ConfigFileName, dir)
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := config.New().SaveTo(path); err != nil {
		return err
	}

	success("Wrote %s", path)
	info("Run 'querysync serve --config %s' to start the server", path)
	return nil
}
