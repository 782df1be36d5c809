package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paraleon-ns3/paraleon/tuner"
)

var paramsOut string // destination file; stdout when empty

// paramsCmd writes the default DCQCN vector so a simulation can start from it
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Write the default DCQCN parameter file",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		space := tuner.DefaultSpace()
		if paramsOut == "" {
			fmt.Fprint(cmd.OutOrStdout(), tuner.FormatParameters(space, space.Defaults()))
			return
		}
		if err := tuner.NewParamFile(paramsOut, space).Publish(space.Defaults()); err != nil {
			logrus.Fatalf("Failed to write parameters: %v", err)
		}
		logrus.Infof("Wrote default parameters to %s", paramsOut)
	},
}

func init() {
	paramsCmd.Flags().StringVar(&paramsOut, "out", "", "Parameter file to write (stdout when empty)")
}
