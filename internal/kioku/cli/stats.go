package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics",
		Long:  "Show live item counts per section and the overall total.",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a, err := openApp()
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Stop()

	ctx := opContext(cmd)
	total, err := a.Memory().CountMemories(ctx, "")
	if err != nil {
		exitErr("stats", err)
	}

	sections := []memory.Section{
		memory.SectionNote,
		memory.SectionEvent,
		memory.SectionTask,
		memory.SectionList,
		memory.SectionContact,
	}
	bySection := make(map[string]int, len(sections))
	for _, s := range sections {
		n, err := a.Memory().CountMemories(ctx, s)
		if err != nil {
			exitErr("stats", err)
		}
		if n > 0 {
			bySection[string(s)] = n
		}
	}

	out := struct {
		Total     int            `json:"total"`
		BySection map[string]int `json:"by_section,omitempty"`
	}{Total: total, BySection: bySection}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
