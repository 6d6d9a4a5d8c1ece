// Command engine hosts a game (serve), checks a replay bundle (verify), lists recorded
// games (catalog), or follows a running game's update feed (tail).
package main

import (
	"fmt"
	"os"
)

const usage = `usage: engine [serve] | verify -bundle DIR | catalog [-root DIR] | tail [-addr ADDR] [-from SEQ]`

func main() {
	command, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var code int
	switch command {
	case "serve":
		code = runServe(args)
	case "verify":
		code = runVerify(args, os.Stdout)
	case "catalog":
		code = runCatalog(args, os.Stdout)
	case "tail":
		code = runTail(args, os.Stdout)
	default:
		fmt.Fprintln(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}
