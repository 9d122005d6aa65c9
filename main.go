package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	c "github.com/fatih/color"
	log "github.com/sirupsen/logrus"
)

type options struct {
	task        string
	context     string
	taintConfig string
	outputDir   string
	visualize   bool
	verbose     bool
	noColorize  bool
}

var opts options

var tasks = []struct{ flag, explanation string }{{
	"cha",
	"Build the whole-program call graph with class hierarchy analysis",
}, {
	"points-to",
	"Perform the pointer analysis and log all points-to sets",
}, {
	"constprop",
	"Perform intra-procedural constant propagation on every reachable method",
}, {
	"inter-constprop",
	"Perform inter-procedural constant propagation over the ICFG",
}, {
	"deadcode",
	"Detect dead code in every reachable method",
}, {
	"taint",
	"Perform the taint analysis on top of the pointer analysis",
}}

func taskList() string {
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "  %-16s %s\n", t.flag, t.explanation)
	}
	return b.String()
}

// CanColorize gates a color.SprintFunc behind the -no-colorize flag.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var colorize = struct {
	Heading func(...interface{}) string
	Fact    func(...interface{}) string
	Finding func(...interface{}) string
}{
	Heading: func(is ...interface{}) string {
		return CanColorize(c.New(c.FgHiBlue).SprintFunc())(is...)
	},
	Fact: func(is ...interface{}) string {
		return CanColorize(c.New(c.FgHiCyan).SprintFunc())(is...)
	},
	Finding: func(is ...interface{}) string {
		return CanColorize(c.New(c.FgHiRed).SprintFunc())(is...)
	},
}

func main() {
	flag.StringVar(&opts.task, "task", "points-to", "Task to perform:\n"+taskList())
	flag.StringVar(&opts.context, "context", "insensitive",
		"Context sensitivity: insensitive, 1-callsite, 2-callsite, 1-object")
	flag.StringVar(&opts.taintConfig, "taint-config", "", "Path to the taint configuration file")
	flag.StringVar(&opts.outputDir, "output-dir", ".", "Directory for visualization output")
	flag.BoolVar(&opts.visualize, "visualize", false, "Render the pointer-flow graph (points-to task only)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&opts.noColorize, "no-colorize", false, "Disable colorized output")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}

	p := newPipeline()
	if err := p.run(opts.task); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
