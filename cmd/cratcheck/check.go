package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rebryant/crat-check/internal/checker"
	"github.com/rebryant/crat-check/internal/dimacs"
)

var checkArgs struct {
	cnfPath   string
	proofPath string
	verbose   bool
	weights   string
}

// parseWeights parses "-w W1:W2:...:Wn": integers 0..100, scaled by 1/100,
// positional by variable id starting at 1.
func parseWeights(spec string) (map[int32]float64, error) {
	if spec == "" {
		return nil, nil
	}
	fields := strings.Split(spec, ":")
	weights := make(map[int32]float64, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Errorf("couldn't extract weight from %q", f)
		}
		if n < 0 || n > 100 {
			return nil, errors.Errorf("weight %d out of range [0,100]", n)
		}
		weights[int32(i+1)] = float64(n) / 100.0
	}
	return weights, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkArgs.verbose {
		log.SetLevel(log.DebugLevel)
	}

	weights, err := parseWeights(checkArgs.weights)
	if err != nil {
		fmt.Println("PROOF FAILED")
		return err
	}

	cnfFile, err := os.Open(checkArgs.cnfPath)
	if err != nil {
		fmt.Println("PROOF FAILED")
		return errors.Wrap(err, "opening CNF file")
	}
	defer cnfFile.Close()

	cnf, err := dimacs.Read(cnfFile)
	if err != nil {
		fmt.Println("PROOF FAILED")
		return errors.Wrap(err, "reading CNF file")
	}

	d, err := checker.New(cnf, checkArgs.verbose, log.StandardLogger())
	if err != nil {
		fmt.Println("PROOF FAILED")
		return errors.Wrap(err, "loading input CNF")
	}

	proofFile, err := os.Open(checkArgs.proofPath)
	if err != nil {
		fmt.Println("PROOF FAILED")
		return errors.Wrap(err, "opening proof file")
	}
	defer proofFile.Close()

	start := time.Now()
	summary := d.Check(proofFile)
	elapsed := time.Since(start)
	log.Infof("elapsed time for check: %.2f seconds", elapsed.Seconds())

	if summary.Failed {
		fmt.Println("PROOF FAILED")
		printSummary(summary)
		return errors.New("proof check failed")
	}
	if summary.FullProof {
		fmt.Println("PROOF SUCCESSFUL")
	} else {
		fmt.Println("PROOF PARTIALLY VERIFIED")
	}
	printSummary(summary)

	root, err := d.Store().CheckFinal()
	if err != nil {
		return errors.Wrap(err, "locating root after a successful check")
	}
	count, err := d.Operations().Count(root, weights)
	if err != nil {
		return errors.Wrap(err, "computing model count")
	}
	if weights == nil {
		fmt.Printf("Unweighted count = %.0f\n", count)
	} else {
		fmt.Printf("Weighted count = %.5f\n", count)
	}
	return nil
}

func printSummary(s checker.Summary) {
	fmt.Printf("%d total clauses\n", s.TotalClauses)
	fmt.Printf("%d maximum live clauses\n", s.MaxLiveClauses)
	fmt.Println("Command occurences:")
	total := 0
	for _, name := range checker.RuleNames() {
		count := s.RuleCounts[name]
		if count > 0 {
			total += count
			fmt.Printf("    %2s   : %d\n", name, count)
		}
	}
	fmt.Printf("    TOTAL: %d\n", total)
}
