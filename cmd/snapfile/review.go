package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/snapfile/pkg/container"
	"github.com/ormasoftchile/snapfile/pkg/tui"
)

var reviewRoot string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively review pending snapshots",
	Args:  cobra.NoArgs,
	RunE:  runReview,
}

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept all pending snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return processAll(container.OpAccept)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject all pending snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return processAll(container.OpReject)
	},
}

func runReview(cmd *cobra.Command, args []string) error {
	containers, err := container.FindContainers(reviewRoot)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		fmt.Println("no pending snapshots")
		return nil
	}

	outcome, err := tui.Run(containers)
	if err != nil {
		return err
	}
	if outcome.Aborted {
		fmt.Println("review aborted, nothing committed")
		return nil
	}
	for _, c := range containers {
		if err := c.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", c.TargetFile(), err)
		}
	}
	printOutcome(outcome)
	return nil
}

// processAll applies one operation to every pending snapshot without the
// interactive screen.
func processAll(op container.Operation) error {
	containers, err := container.FindContainers(reviewRoot)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		fmt.Println("no pending snapshots")
		return nil
	}
	var outcome tui.Outcome
	for _, c := range containers {
		c.SetAll(op)
		if err := c.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", c.TargetFile(), err)
		}
		for _, s := range c.Snapshots() {
			switch op {
			case container.OpAccept:
				outcome.Accepted = append(outcome.Accepted, s.Summary())
			case container.OpReject:
				outcome.Rejected = append(outcome.Rejected, s.Summary())
			}
		}
	}
	printOutcome(outcome)
	return nil
}

func printOutcome(o tui.Outcome) {
	section := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(os.Stdout, "%s:\n", label)
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}
	section("accepted", o.Accepted)
	section("rejected", o.Rejected)
	section("skipped", o.Skipped)
	if len(o.Accepted) == 0 && len(o.Rejected) == 0 && len(o.Skipped) == 0 {
		fmt.Println("nothing reviewed")
	}
}

func init() {
	for _, c := range []*cobra.Command{reviewCmd, acceptCmd, rejectCmd} {
		c.Flags().StringVar(&reviewRoot, "root", ".", "directory to scan for pending snapshots")
		rootCmd.AddCommand(c)
	}
}
