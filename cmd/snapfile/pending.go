package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/snapfile/pkg/container"
)

var pendingJSON bool

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending snapshots without reviewing them",
	Args:  cobra.NoArgs,
	RunE:  runPending,
}

// pendingEntry is the machine-readable listing form consumed by editor
// integrations.
type pendingEntry struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Name    string `json:"name,omitempty"`
	Line    int    `json:"line,omitempty"`
	IsNew   bool   `json:"is_new"`
	Summary string `json:"summary"`
}

func runPending(cmd *cobra.Command, args []string) error {
	containers, err := container.FindContainers(reviewRoot)
	if err != nil {
		return err
	}

	var entries []pendingEntry
	for _, c := range containers {
		kind := "external"
		if c.Kind() == container.KindInline {
			kind = "inline"
		}
		for _, s := range c.Snapshots() {
			entries = append(entries, pendingEntry{
				Kind:    kind,
				Target:  c.TargetFile(),
				Name:    s.New.Name,
				Line:    s.Line,
				IsNew:   s.Old == nil,
				Summary: s.Summary(),
			})
		}
	}

	if pendingJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("no pending snapshots")
		return nil
	}
	for _, e := range entries {
		if e.Line > 0 {
			fmt.Printf("%s:%d %s\n", e.Target, e.Line, e.Summary)
		} else {
			fmt.Printf("%s %s\n", e.Target, e.Summary)
		}
	}
	return nil
}

func init() {
	pendingCmd.Flags().BoolVar(&pendingJSON, "json", false, "emit one JSON object per pending snapshot")
	pendingCmd.Flags().StringVar(&reviewRoot, "root", ".", "directory to scan for pending snapshots")
	rootCmd.AddCommand(pendingCmd)
}
