package main

import (
	"errors"
	"fmt"

	"github.com/chatgpa/backend/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                    - create the application database and user if missing")
	fmt.Println("  migrate [COMMAND] [ARGS...] - run database migrations (up|down|status|...; default: up)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			return cli.migrate([]string{"up"})
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
