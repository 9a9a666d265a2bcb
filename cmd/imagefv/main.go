// Copyright (c) HashiCorp, Inc.

package main

import "github.com/uefitools/go-imagefv/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main start the imagefv cli
func main() {
	cmd.Run(version, commit, date)
}
