// Command synapsectl is the out-of-band companion CLI: it runs a single
// generator for a compsys completion script (spec.md §6.3), dumps a
// resolved CommandSpec for debugging, or discovers a new spec from a
// command's --help output (spec.md §4.3).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/synapse-sh/synapse/internal/config"
	"github.com/synapse-sh/synapse/internal/specmodel"
	"github.com/synapse-sh/synapse/internal/specparse"
	"github.com/synapse-sh/synapse/internal/specstore"
	"github.com/synapse-sh/synapse/internal/tools"
)

const discoveryTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapsectl: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run-generator":
		runGenerator(cfg, os.Args[2:])
	case "spec":
		specCmd(cfg, os.Args[2:])
	case "add":
		addCmd(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  synapsectl run-generator --command <cmd> [--strip-prefix p] [--split-on s] [--cwd dir]
  synapsectl spec dump <command> [--cwd dir]
  synapsectl add <command> [--cwd dir]`)
}

func openStore(cfg config.Config) (*specstore.Store, *specstore.Cache) {
	cache, err := specstore.OpenCache(filepath.Join(cfg.Paths.DataDir, "specs.db"))
	if err != nil {
		cache = nil
	}
	store := specstore.New(specstore.Options{
		Cache:                  cache,
		TrustProjectGenerators: cfg.Providers.TrustProjectGenerators,
	})
	return store, cache
}

// runGenerator executes one generator command and prints its resulting
// values, one per line — the primitive the compsys-exported zsh functions
// shell out to for `{local -a vals; ...}` actions whose underlying command
// needs the richer project/cache-aware resolution a bare shell pipeline
// can't do on its own (spec.md §6.3).
func runGenerator(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("run-generator", flag.ExitOnError)
	command := fs.String("command", "", "generator shell command")
	stripPrefix := fs.String("strip-prefix", "", "prefix to strip from each line")
	splitOn := fs.String("split-on", "", "field separator (default newline)")
	cwd := fs.String("cwd", "", "working directory (default: current)")
	fs.Parse(args)

	if *command == "" {
		fmt.Fprintln(os.Stderr, "run-generator: --command is required")
		os.Exit(1)
	}
	dir := *cwd
	if dir == "" {
		dir, _ = os.Getwd()
	}

	store, cache := openStore(cfg)
	if cache != nil {
		defer cache.Close()
	}

	gen := specmodel.GeneratorSpec{Command: *command, StripPrefix: *stripPrefix, SplitOn: *splitOn}
	values := store.RunGenerator(context.Background(), gen, dir, false)
	for _, v := range values {
		fmt.Println(v)
	}
}

// specCmd handles `synapsectl spec dump <command>`, printing the resolved
// CommandSpec as YAML for inspection — a debug aid, not part of the compsys
// export path (which stays zsh-native, see internal/compsysexport).
func specCmd(cfg config.Config, args []string) {
	if len(args) < 1 || args[0] != "dump" {
		usage()
		os.Exit(1)
	}
	fs := flag.NewFlagSet("spec dump", flag.ExitOnError)
	cwd := fs.String("cwd", "", "working directory (default: current)")
	fs.Parse(args[1:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "spec dump: command name required")
		os.Exit(1)
	}
	dir := *cwd
	if dir == "" {
		dir, _ = os.Getwd()
	}

	store, cache := openStore(cfg)
	if cache != nil {
		defer cache.Close()
	}

	spec, ok := store.Lookup(fs.Arg(0), dir)
	if !ok {
		fmt.Fprintf(os.Stderr, "spec dump: no spec found for %q\n", fs.Arg(0))
		os.Exit(1)
	}
	printAsYAML(spec)
}

// addCmd discovers a CommandSpec for a command not otherwise known, by
// running `<command> --help` and parsing it (spec.md §4.3's discovery
// fallback), then persists it to the discovered-spec cache so future
// lookups skip the subprocess.
func addCmd(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	cwd := fs.String("cwd", "", "working directory (default: current)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "add: command name required")
		os.Exit(1)
	}
	name := fs.Arg(0)
	dir := *cwd
	if dir == "" {
		dir, _ = os.Getwd()
	}

	out, _, err := tools.RunShellIn(context.Background(), dir, name+" --help", discoveryTimeout)
	if err != nil && out == "" {
		fmt.Fprintf(os.Stderr, "add: %s --help failed: %v\n", name, err)
		os.Exit(1)
	}

	spec := specparse.ParseHelpBasic(name, out)

	_, cache := openStore(cfg)
	if cache == nil {
		fmt.Fprintln(os.Stderr, "add: spec cache unavailable, discovered spec not persisted")
		printAsYAML(spec)
		return
	}
	defer cache.Close()

	if err := cache.PutDiscovered(name, spec); err != nil {
		fmt.Fprintf(os.Stderr, "add: persisting discovered spec: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("discovered %d option(s), %d subcommand(s) for %q\n", len(spec.Options), len(spec.Subcommands), name)
	printAsYAML(spec)
}

// printAsYAML round-trips v through JSON first so existing json struct tags
// (snake_case field names) drive the YAML output instead of yaml.v3's
// default lowercased-field-name behavior.
func printAsYAML(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "yaml dump: %v\n", err)
		return
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		fmt.Fprintf(os.Stderr, "yaml dump: %v\n", err)
		return
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "yaml dump: %v\n", err)
		return
	}
	fmt.Print(string(out))
}
