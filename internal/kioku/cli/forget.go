package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [id]",
		Short: "Remove a memory item",
		Long:  "Logically remove a long-term memory item. Forgetting an unknown ID is a no-op.",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}
	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	a, err := openApp()
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Stop()

	if err := a.Memory().ForgetMemory(opContext(cmd), args[0]); err != nil {
		exitErr("forget", err)
	}
	fmt.Println("ok")
}
