package main

import "github.com/spf13/cobra"

// BuildVersion is set with -ldflags at release time.
var BuildVersion = "dev"

var rootCmd = &cobra.Command{
	Use:          "authgate",
	Short:        "authgate auth gateway",
	Long:         "Registration, login, token validation and session revocation over HTTP.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of authgate",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newKeygenCommand())
}
