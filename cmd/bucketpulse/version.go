package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/younsl/bucketpulse/internal/version"
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := version.Get()
			return a.render(info, func(w io.Writer) { fmt.Fprintln(w, info.String()) })
		},
	}
}
