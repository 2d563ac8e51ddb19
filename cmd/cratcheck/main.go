// Command cratcheck checks (and, via its generate subcommand, produces)
// CRAT proofs of weighted/unweighted model counts against a DIMACS input.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cratcheck",
		Short: "Check a CRAT proof against a CNF input",
		Long: `cratcheck verifies that a CRAT proof establishes the
(weighted) model count of a DIMACS CNF formula, replaying its clause
additions, deletions, and extension-variable operations against the
input and reporting PROOF SUCCESSFUL, PROOF PARTIALLY VERIFIED, or
PROOF FAILED.`,
		SilenceUsage: true,
		RunE:         runCheck,
	}

	rootCmd.Flags().StringVarP(&checkArgs.cnfPath, "input", "i", "", "input CNF file (DIMACS)")
	rootCmd.Flags().StringVarP(&checkArgs.proofPath, "proof", "p", "", "input CRAT proof file")
	rootCmd.Flags().BoolVarP(&checkArgs.verbose, "verbose", "v", false, "enable verbose diagnostics")
	rootCmd.Flags().StringVarP(&checkArgs.weights, "weights", "w", "", "colon-separated weights W1:W2:...:Wn, by variable id")
	if err := rootCmd.MarkFlagRequired("input"); err != nil {
		log.Fatal(err)
	}
	if err := rootCmd.MarkFlagRequired("proof"); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(newGenerateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
