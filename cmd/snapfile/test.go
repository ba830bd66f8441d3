package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/snapfile/pkg/pending"
	"github.com/ormasoftchile/snapfile/pkg/runtime"
)

var (
	testUpdate string
	testReview bool
	testArgs   []string
)

var testCmd = &cobra.Command{
	Use:   "test [packages]",
	Short: "Run go test with snapshot recording, then optionally review",
	Long: "Runs the test suite with a fixed run id so stale pending records " +
		"from earlier runs are superseded, then drops into review when requested.",
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	if _, err := runtime.ParseBehavior(testUpdate); err != nil {
		return err
	}

	pkgs := args
	if len(pkgs) == 0 {
		pkgs = []string{"./..."}
	}
	goArgs := append([]string{"test"}, pkgs...)
	goArgs = append(goArgs, testArgs...)

	c := exec.Command("go", goArgs...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = append(os.Environ(),
		"SNAPFILE_UPDATE="+testUpdate,
		"SNAPFILE_RUN_ID="+pending.RunID(),
	)
	testErr := c.Run()

	if testReview {
		if err := runReview(cmd, nil); err != nil {
			return err
		}
	}
	if testErr != nil {
		return fmt.Errorf("test run failed: %w", testErr)
	}
	return nil
}

func init() {
	testCmd.Flags().StringVar(&testUpdate, "update", "auto", "update behavior: auto, always, unseen, new, no, force")
	testCmd.Flags().BoolVar(&testReview, "review", false, "review pending snapshots after the run")
	testCmd.Flags().StringArrayVar(&testArgs, "arg", nil, "extra argument passed to go test (repeatable)")
	testCmd.Flags().StringVar(&reviewRoot, "root", ".", "directory to scan for pending snapshots")
	rootCmd.AddCommand(testCmd)
}
