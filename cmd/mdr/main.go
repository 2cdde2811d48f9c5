package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/nooga/mdr/pkg/config"
	"github.com/nooga/mdr/pkg/errors"
	"github.com/nooga/mdr/pkg/vm"
)

var log = commonlog.GetLogger("mdr.cmd")

func main() {
	configFlag := flag.String("config", "", "Load configuration from a .toml or .yaml file")
	workloadFlag := flag.String("w", "all", "Workload to run: objects, prototypes, calls, json, regexp or all")
	iterationsFlag := flag.Int("n", 100000, "Iterations per workload")
	cacheStatsFlag := flag.Bool("cache-stats", false, "Show inline cache statistics after execution")
	noCachesFlag := flag.Bool("no-caches", false, "Run with the inline caches disabled")
	statsFlag := flag.Bool("stats", false, "Write a stats report on shutdown")
	verboseFlag := flag.Int("v", -1, "Log verbosity (overrides the configuration)")
	logFlag := flag.String("log", "", "Write logs to this file instead of stderr")

	flag.Parse()

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
			os.Exit(64)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if *verboseFlag >= 0 {
		cfg.LogVerbosity = *verboseFlag
	}
	if *noCachesFlag {
		cfg.EnableInlineCaches = false
	}
	if *statsFlag {
		cfg.ProfileStats = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(64)
	}

	var logPath *string
	if *logFlag != "" {
		logPath = logFlag
	}
	commonlog.Configure(cfg.LogVerbosity, logPath)

	workloads, ok := selectWorkloads(*workloadFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "Usage: mdr [-w objects|prototypes|calls|json|regexp|all] [-n iterations] [-config file]\n")
		os.Exit(64)
	}

	rt := vm.NewRuntime(cfg)
	failed := false
	for _, w := range workloads {
		if !runWorkload(rt, cfg, w, *iterationsFlag) {
			failed = true
			if cfg.FailOnException {
				break
			}
		}
	}

	if *cacheStatsFlag {
		printHeader(os.Stdout, "Cache statistics")
		rt.PrintCacheStats(os.Stdout)
	}
	if err := rt.Shutdown(); err != nil {
		log.Errorf("writing stats: %s", err.Error())
		os.Exit(70)
	}
	if failed && cfg.FailOnException {
		os.Exit(70)
	}
}

// runWorkload runs w and reports whether it completed. Engine errors raised
// as panics are recovered here.
func runWorkload(rt *vm.Runtime, cfg *config.Config, w workload, iterations int) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		err, isEngineError := r.(errors.MdrError)
		if !isEngineError {
			panic(r)
		}
		log.Errorf("%s: %s", w.name, err.Error())
		if cfg.DumpExceptions {
			errors.DisplayErrors(os.Stderr, []errors.MdrError{err})
		}
		if cfg.DumpStack {
			os.Stderr.Write(debug.Stack())
		}
	}()

	printHeader(os.Stdout, w.name)
	result := w.run(rt, iterations)
	fmt.Fprintf(os.Stdout, "%s\n", result)
	return true
}

func printHeader(w io.Writer, title string) {
	if f, isFile := w.(*os.File); isFile && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		fmt.Fprintf(w, "\x1b[1;36m== %s ==\x1b[0m\n", title)
		return
	}
	fmt.Fprintf(w, "== %s ==\n", title)
}
