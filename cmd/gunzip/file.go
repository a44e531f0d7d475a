// Copyright 2022 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/gz"
)

// options collects the command line flags relevant for file processing.
type options struct {
	stdout bool
	force  bool
	keep   bool
	quiet  bool
	test   bool
}

const gzSuffix = ".gz"

// outputPath derives the name of the decompressed file: .gz is stripped and
// .tgz becomes .tar.
func outputPath(path string) (out string, err error) {
	switch {
	case strings.HasSuffix(path, gzSuffix) && len(path) > len(gzSuffix):
		return path[:len(path)-len(gzSuffix)], nil
	case strings.HasSuffix(path, ".tgz") && len(path) > len(".tgz"):
		return path[:len(path)-len(".tgz")] + ".tar", nil
	}
	return "", fmt.Errorf("%s: unknown suffix -- ignored", path)
}

func processFile(path string, opts *options) error {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		out, err := gz.Decompress(data)
		if err != nil {
			return err
		}
		if opts.test {
			return nil
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := gz.Decompress(data)
	if err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}
	switch {
	case opts.test:
		return nil
	case opts.stdout:
		_, err = os.Stdout.Write(out)
		return err
	}

	outPath, err := outputPath(path)
	if err != nil {
		return err
	}
	if !opts.force {
		if _, err := os.Stat(outPath); err == nil {
			return fmt.Errorf("%s already exists; use -f to overwrite",
				outPath)
		}
	}
	tmpPath := outPath + ".gunzip"
	if err = writeFile(tmpPath, out); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if !opts.keep && !opts.stdout {
		return os.Remove(path)
	}
	return nil
}

// writeFile writes data into a fresh file. A partially written file is
// removed.
func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
	}
	return werr
}
