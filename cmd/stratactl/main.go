// Command stratactl is a minimal CLI delegating to strata's
// Series/Collection/Repository (§6 "CLI surface (minimal, non-core)").
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/jpl-au/strata"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "stratactl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("stratactl", flag.ExitOnError)
	uri := fs.String("repo", "", "repository URI (file://, memory://, s3://)")
	jsonOut := fs.Bool("json", false, "emit JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: stratactl -repo=URI [-json] <ls|revisions> [collection]")
	}
	if *uri == "" {
		return fmt.Errorf("-repo is required")
	}

	repo, err := strata.Open(*uri, strata.RuntimeConfig{})
	if err != nil {
		return err
	}

	switch fs.Arg(0) {
	case "ls":
		labels, err := repo.Labels()
		if err != nil {
			return err
		}
		return printOut(*jsonOut, labels)
	case "revisions":
		if fs.NArg() < 2 {
			n, err := repo.Revisions()
			if err != nil {
				return err
			}
			return printOut(*jsonOut, n)
		}
		coll, err := repo.Get(fs.Arg(1))
		if err != nil {
			return err
		}
		n, err := coll.Revisions()
		if err != nil {
			return err
		}
		return printOut(*jsonOut, n)
	default:
		return fmt.Errorf("unknown subcommand %q", fs.Arg(0))
	}
}

func printOut(asJSON bool, v any) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(v)
	}
	fmt.Println(v)
	return nil
}
