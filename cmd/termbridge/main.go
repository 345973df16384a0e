package main

import (
	"fmt"
	"os"
)

// version is overridden at release time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		exit(runServe(os.Args[2:]))
	case "attach":
		exit(runAttach(os.Args[2:]))
	case "runs":
		exit(runRuns(os.Args[2:]))
	case "version", "--version":
		fmt.Println("termbridge " + version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func exit(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "termbridge:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: termbridge <command> [flags]

Commands:
  serve    Host a shell and serve it over websocket and REST
  attach   Connect the terminal UI to a running server
  runs     List recorded runs on a running server
  version  Print the version

Common flags:
  -config <path>  Config file (default ~/.config/termbridge/config.yaml)

Run "termbridge <command> -h" for command flags.`)
}
