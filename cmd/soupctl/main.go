// soupctl 은 판정 서버 없이 퍼즐과 판정기를 직접 다루는 운영 도구다.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "soupctl",
		Short: "Turtle soup judge toolbox",
		Long: `Inspect the embedded puzzle collection and run single judgments.

Available subcommands:
  puzzles - List the embedded puzzles without answers
  judge   - Judge one question or guess (online or offline)
  ping    - Check a running judge server`,
		SilenceUsage: true,
	}
	root.AddCommand(newPuzzlesCmd(), newJudgeCmd(), newPingCmd())
	return root
}
