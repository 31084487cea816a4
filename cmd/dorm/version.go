package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/pthm/dorm/internal/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if version.Version == "dev" {
			if info, ok := debug.ReadBuildInfo(); ok {
				version.Version = info.Main.Version
				for _, s := range info.Settings {
					switch s.Key {
					case "vcs.revision":
						version.Commit = s.Value
					case "vcs.time":
						version.Date = s.Value
					}
				}
			}
		}
		if versionShort {
			fmt.Println(version.Short())
			return nil
		}
		fmt.Println(version.Info())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
}
