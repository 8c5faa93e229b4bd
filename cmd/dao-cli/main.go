// Command dao-cli generates eligibility circuit keys and proofs, signs
// requests and talks to a davinci-dao node.
package main

import (
	"cmp"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/davinci-dao/log"
)

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"setup", "generate the proving and verifying keys of the eligibility circuit", runSetup},
	{"commitment", "compute the eligibility commitment of a secret and a token", runCommitment},
	{"prove", "generate an eligibility proof and its public input", runProve},
	{"sign", "sign a request body read from a JSON file", runSign},
	{"vote", "prove eligibility and cast a vote on a node", runVote},
	{"election", "show the current election of a creator", runElection},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: dao-cli <command> [flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", cmd.name, cmd.usage)
	}
	fmt.Fprintf(os.Stderr, "\nRun dao-cli <command> --help for the flags of a command.\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	log.Init(cmp.Or(os.Getenv("DAO_CLI_LOG_LEVEL"), log.LogLevelError), "stderr", nil)
	for _, cmd := range commands {
		if cmd.name != os.Args[1] {
			continue
		}
		if err := cmd.run(os.Args[2:]); err != nil && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.name, err)
			os.Exit(1)
		}
		return
	}
	usage()
	os.Exit(2)
}
