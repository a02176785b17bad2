package main

import (
	"flag"
	"fmt"
	"os"
)

type commandParams struct {
	depsFile       string
	tags           string
	concurrency    int
	format         string
	paths          []string
	stopDepsAtEnd  bool
	debug          bool
	debugAll       bool
	metricsFile    string
	recordFailures string
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.depsFile, "deps", "", "YAML file describing the services to check and start before the run")
	fs.StringVar(&c.tags, "tags", "", "tag expression selecting the scenarios to run, for instance \"@web && ~@wip\"")
	fs.IntVar(&c.concurrency, "concurrency", 1, "number of scenarios to run at the same time")
	fs.StringVar(&c.format, "format", "pretty", "godog output format (pretty, progress, cucumber, junit)")
	fs.BoolVar(&c.stopDepsAtEnd, "stop-deps-at-end", true, "stop the services that this run started")
	fs.BoolVar(&c.debug, "debug", false, "show debug output for failed scenarios")
	fs.BoolVar(&c.debugAll, "debug-all", false, "show debug output for all scenarios as it happens")
	fs.StringVar(&c.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.StringVar(&c.recordFailures, "record-failures", "", "write the names of failed scenarios to this file")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if c.concurrency < 1 {
		fmt.Fprintln(os.Stderr, "-concurrency must be at least 1")
		fs.Usage()
		return false
	}
	c.paths = fs.Args()
	if len(c.paths) == 0 {
		c.paths = []string{"features"}
	}
	return true
}
