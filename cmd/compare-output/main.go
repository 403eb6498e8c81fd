// compare-output is the per-test checker the judge image invokes with the
// user output and the expected output. Exit 0 and print OK to accept,
// exit 1 and print WA to reject, exit 2 on judge error.
package main

import (
	"flag"
	"fmt"
	"os"

	"coduel/internal/compare"
)

func main() {
	strict := flag.Bool("strict", false, "Require exact token equality (no numeric tolerance)")
	epsilon := flag.Float64("epsilon", compare.DefaultEpsilon, "Numeric tolerance (absolute or relative)")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: compare-output [-strict] [-epsilon f] <user_output> <expected_output>")
		os.Exit(2)
	}

	user, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading files: %v\n", err)
		os.Exit(2)
	}
	expected, err := os.ReadFile(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading files: %v\n", err)
		os.Exit(2)
	}

	if compare.Outputs(string(user), string(expected), compare.Options{Epsilon: *epsilon, Strict: *strict}) {
		fmt.Println("OK")
		os.Exit(0)
	}
	fmt.Println("WA")
	os.Exit(1)
}
