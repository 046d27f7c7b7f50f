// sitelinkctl is the operator tool for site links: it generates secrets,
// derives link ids, issues transfer tokens and checks them against a peer,
// using the same digest code as the daemon.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/TremiDkhar/sitelink/internal/version"
)

// exitError carries a process exit code without printing anything extra.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commands = []command{
	{"secret", "generate a new random link secret", runSecret},
	{"derive", "derive the link id of a secret and site pair", runDerive},
	{"issue", "issue the transfer token of a link id for the current hour", runIssue},
	{"check", "issue a token and ask the remote peer to verify it", runCheck},
	{"timestamp", "print the current hour bucket", runTimestamp},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return exitError{code: 2}
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	case "--version", "version":
		fmt.Fprintf(stdout, "sitelinkctl %s\n", version.String())
		return nil
	}

	for _, c := range commands {
		if c.name == args[0] {
			err := c.run(args[1:], stdout)
			if errors.Is(err, pflag.ErrHelp) {
				return nil
			}
			return err
		}
	}
	return fmt.Errorf("unknown command %q (see sitelinkctl --help)", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: sitelinkctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'sitelinkctl <command> --help' for the flags of a command.")
}
