package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/HerbHall/cycleinsight/internal/backup"
	"github.com/HerbHall/cycleinsight/internal/server"
)

func runBackup(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	output := fs.String("output", "", "archive path (default cycleinsight-backup-<timestamp>.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	v, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	archive := *output
	if archive == "" {
		archive = fmt.Sprintf("cycleinsight-backup-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	}

	m, err := backup.Create(context.Background(), v.GetString("database.path"), v.ConfigFileUsed(), archive)
	if err != nil {
		fmt.Fprintf(stderr, "backup failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "backup written to %s (version %s, config included: %t)\n", archive, m.Version, m.HasConfig)
	return 0
}

func runRestore(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	target := fs.String("target", "", "directory to restore into (default: the directory of database.path)")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: cycleinsight restore [-target dir] [-force] <archive>")
		return 2
	}

	dir := *target
	if dir == "" {
		v, err := server.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
			return 1
		}
		dir = filepath.Dir(v.GetString("database.path"))
	}

	m, err := backup.Restore(context.Background(), fs.Arg(0), dir, *force)
	if err != nil {
		fmt.Fprintf(stderr, "restore failed: %v\n", err)
		return 1
	}
	if m != nil {
		fmt.Fprintf(stdout, "restored backup of version %s taken %s into %s\n", m.Version, m.CreatedAt.Format(time.RFC3339), dir)
	} else {
		fmt.Fprintf(stdout, "restored into %s\n", dir)
	}
	return 0
}
