package main

import (
	"fmt"
	"strings"

	yokopoke "github.com/YOKOPOKE/yokopoke-sub000"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of yokobot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "yokobot version %s\n", strings.TrimSpace(yokopoke.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
