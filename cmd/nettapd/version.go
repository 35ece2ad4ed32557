package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wisbric/nightowl/pkg/sysversion"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the daemon's own version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sysversion.NettapVersion)
		return nil
	},
}
