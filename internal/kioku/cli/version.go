package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kioku/common/version"
)

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	}
	RootCmd.AddCommand(cmd)
}
