package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stepviz",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stepviz version 1.0.0")
	},
}
