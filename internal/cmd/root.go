package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "etwtopprof -i <trace.samples> [-o <profile.pb.gz>]",
		Short:         "Convert symbolized ETW CPU samples to a pprof profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConvert,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
