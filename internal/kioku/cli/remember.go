package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory item",
		Long:  "Store a durable memory item. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("title", "T", "", "Short title for the item")
	cmd.Flags().StringP("section", "s", "note", "Section: note, event, task, list, contact")
	cmd.Flags().String("source", "capture", "Source: capture, diary, conversation, import")
	cmd.Flags().StringP("people", "p", "", "Comma-separated people")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().StringP("location", "l", "", "Location")
	cmd.Flags().String("event-at", "", "Event timestamp (RFC 3339)")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	section, _ := cmd.Flags().GetString("section")
	source, _ := cmd.Flags().GetString("source")
	peopleStr, _ := cmd.Flags().GetString("people")
	tagsStr, _ := cmd.Flags().GetString("tags")
	location, _ := cmd.Flags().GetString("location")
	eventAtStr, _ := cmd.Flags().GetString("event-at")

	// Content: positional arg first, then stdin.
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	item := memory.MemoryItem{
		Source:   memory.Source(source),
		Title:    title,
		Content:  strings.TrimSpace(content),
		Section:  memory.Section(section),
		People:   splitList(peopleStr),
		Tags:     splitList(tagsStr),
		Location: location,
	}
	if eventAtStr != "" {
		t, err := time.Parse(time.RFC3339, eventAtStr)
		if err != nil {
			exitErr("remember", fmt.Errorf("invalid --event-at: %w", err))
		}
		item.EventAt = &t
	}

	a, err := openApp()
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Stop()

	stored, err := a.Memory().SaveMemory(opContext(cmd), item)
	if err != nil {
		exitErr("remember", err)
	}

	b, _ := json.Marshal(stored)
	fmt.Println(string(b))
}

// splitList parses a comma-separated flag value into a clean slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
