package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history [chat-id]",
		Short: "Show recent conversation turns",
		Long:  "Show the retained recent turns of a chat, newest first.",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max turns (0 = full retained window)")
	cmd.Flags().String("since", "", "Only turns at or after this RFC 3339 time")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	sinceStr, _ := cmd.Flags().GetString("since")

	opts := memory.HistoryOptions{Limit: limit}
	if sinceStr != "" {
		t, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			exitErr("history", fmt.Errorf("invalid --since: %w", err))
		}
		opts.Since = t
	}

	a, err := openApp()
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Stop()

	msgs, err := a.Memory().History(opContext(cmd), args[0], opts)
	if err != nil {
		exitErr("history", err)
	}

	if len(msgs) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(msgs, "", "  ")
	fmt.Println(string(b))
}
