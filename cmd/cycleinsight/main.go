package main

//	@title						cycleinsight API
//	@version					0.1.0
//	@description				Menstrual cycle deviation analysis, persistence tracking and cycle window prediction.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"fmt"
	"os"

	_ "github.com/HerbHall/cycleinsight/api/swagger"
	"github.com/HerbHall/cycleinsight/internal/version"
)

const usage = `usage: cycleinsight [command] [flags]

commands:
  serve     run the HTTP server (default)
  analyze   analyze one cycle history and print the result as JSON
  token     mint a bearer token for a user
  backup    write a backup archive of the database and config
  restore   restore a backup archive
  version   print version information

Run "cycleinsight <command> -h" for command flags.
`

func main() {
	args := os.Args[1:]
	// Subcommand dispatch (before flag parsing).
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			os.Exit(runServe(args[1:]))
		case "analyze":
			os.Exit(runAnalyze(args[1:], os.Stdin, os.Stdout, os.Stderr))
		case "token":
			os.Exit(runToken(args[1:], os.Stdout, os.Stderr))
		case "backup":
			os.Exit(runBackup(args[1:], os.Stdout, os.Stderr))
		case "restore":
			os.Exit(runRestore(args[1:], os.Stdout, os.Stderr))
		case "version", "-version", "--version":
			fmt.Println(version.Info())
			return
		case "help", "-h", "-help", "--help":
			fmt.Print(usage)
			return
		}
	}
	os.Exit(runServe(args))
}
