package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the memory archive",
		Long:  "Run a ranked semantic search over long-term memories. With --chat, recent matching conversation turns from that chat are appended.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("section", "s", "", "Filter by section")
	cmd.Flags().StringP("people", "p", "", "Filter by comma-separated people (all must match)")
	cmd.Flags().StringP("tags", "t", "", "Filter by comma-separated tags (all must match)")
	cmd.Flags().String("from", "", "Only items created at or after this RFC 3339 time")
	cmd.Flags().String("to", "", "Only items created at or before this RFC 3339 time")
	cmd.Flags().IntP("top-k", "k", memory.DefaultTopK, "Max results")
	cmd.Flags().String("chat", "", "Also match recent turns from this chat")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	section, _ := cmd.Flags().GetString("section")
	peopleStr, _ := cmd.Flags().GetString("people")
	tagsStr, _ := cmd.Flags().GetString("tags")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	topK, _ := cmd.Flags().GetInt("top-k")
	chatID, _ := cmd.Flags().GetString("chat")

	q := memory.MemoryQuery{
		Query:   strings.Join(args, " "),
		Section: memory.Section(section),
		People:  splitList(peopleStr),
		Tags:    splitList(tagsStr),
		TopK:    topK,
	}
	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			exitErr("search", fmt.Errorf("invalid --from: %w", err))
		}
		q.From = t
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			exitErr("search", fmt.Errorf("invalid --to: %w", err))
		}
		q.To = t
	}

	a, err := openApp()
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Stop()

	ctx := opContext(cmd)
	var results []memory.SearchResult
	if chatID != "" {
		results, err = a.Memory().Search(ctx, chatID, q)
	} else {
		results, err = a.Memory().SearchMemories(ctx, q)
	}
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
