// Copyright 2022 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ogier/pflag"
)

const usageStr = `Usage: gunzip [OPTION]... [FILE]...
Uncompress FILEs in the .gz format (by default, in place).

  -c, --stdout      write to standard output and keep input files
  -f, --force       force overwrite of the output file
  -h, --help        give this help
  -k, --keep        keep (don't delete) input files
  -q, --quiet       suppress all error messages
  -t, --test        test compressed file integrity
  -V, --version     display version string

With no FILE, or when FILE is -, read standard input.

Report bugs using <https://github.com/ulikunitz/gz/issues>.
`

const version = "0.1"

func usage(w io.Writer) {
	fmt.Fprint(w, usageStr)
}

func main() {
	// setup logger
	cmdName := filepath.Base(os.Args[0])
	log.SetPrefix(fmt.Sprintf("%s: ", cmdName))
	log.SetFlags(0)

	// initialize flags
	pflag.CommandLine = pflag.NewFlagSet(cmdName, pflag.ExitOnError)
	pflag.SetInterspersed(true)
	pflag.Usage = func() { usage(os.Stderr); os.Exit(2) }
	var (
		help        = pflag.BoolP("help", "h", false, "")
		stdout      = pflag.BoolP("stdout", "c", false, "")
		force       = pflag.BoolP("force", "f", false, "")
		keep        = pflag.BoolP("keep", "k", false, "")
		quiet       = pflag.BoolP("quiet", "q", false, "")
		test        = pflag.BoolP("test", "t", false, "")
		showVersion = pflag.BoolP("version", "V", false, "")
	)
	pflag.Parse()

	if *help {
		usage(os.Stdout)
		os.Exit(0)
	}
	if *showVersion {
		fmt.Printf("%s %s\n", cmdName, version)
		os.Exit(0)
	}

	opts := &options{
		stdout: *stdout,
		force:  *force,
		keep:   *keep,
		quiet:  *quiet,
		test:   *test,
	}
	args := pflag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}

	exitCode := 0
	for _, arg := range args {
		if err := processFile(arg, opts); err != nil {
			if !opts.quiet {
				log.Print(err)
			}
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
