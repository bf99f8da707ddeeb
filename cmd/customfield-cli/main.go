package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// errFailed marks a command that already reported its problems.
var errFailed = errors.New("failed")

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

type env struct {
	stdout io.Writer
	stderr io.Writer
}

var commands []command

func init() {
	commands = []command{
		{"validate", "validate [-hints file] <definition>...", "check definition files and report every problem", runValidate},
		{"describe", "describe [-hints file] <definition>", "print field descriptors as JSON", runDescribe},
		{"check", "check <definition> <value.json>", "validate a value against a definition", runCheck},
		{"fill", "fill [-hints file] [-format json|form|pretty] <definition> | fill -server url -schema id [-company n] [-entity n]", "fill a form interactively", runFill},
		{"preview", "preview [-hints file] [-stylesheet href] [-output file] <definition>", "render an HTML preview", runPreview},
		{"openapi", "openapi [-title t] [-entity type] [-output file] <definition>...", "export definitions as OpenAPI components", runOpenAPI},
		{"import-openapi", "import-openapi <document> [component]", "list components or convert one into a definition", runImportOpenAPI},
		{"export", "export -server url -schema id [-company n] -output file", "download entity values as xlsx", runExport},
		{"import", "import -server url -schema id [-company n] <file.xlsx>", "upload entity values from xlsx", runImport},
	}
}

func main() {
	os.Exit(dispatch(context.Background(), &env{stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:]))
}

func dispatch(ctx context.Context, e *env, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(e.stderr)
		return 2
	}
	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		if err := cmd.run(ctx, e, args[1:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 2
			}
			if !errors.Is(err, errFailed) {
				fmt.Fprintf(e.stderr, "%s: %v\n", cmd.name, err)
			}
			return 1
		}
		return 0
	}
	fmt.Fprintf(e.stderr, "unknown command %q\n\n", args[0])
	usage(e.stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [flags] [args]\n\nCommands:\n", filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	byName := map[string]command{}
	for _, cmd := range commands {
		names = append(names, cmd.name)
		byName[cmd.name] = cmd
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, byName[name].summary)
	}
}

func flagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	for _, cmd := range commands {
		if cmd.name == name {
			usage := cmd.usage
			fs.Usage = func() {
				fmt.Fprintf(e.stderr, "Usage: %s\n", usage)
				fs.PrintDefaults()
			}
		}
	}
	return fs
}
