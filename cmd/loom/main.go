// Command loom runs precompiled bytecode Chunks against the engine:
// `loom run <chunk>` executes one chunk to completion, `loom repl`
// opens an interactive shell that loads chunks one at a time into a
// shared execution context, letting top-level variables and
// declarations persist across loads the way php -a's REPL persists
// state across statements. Compiling PHP source into a Chunk is a
// lexer/parser/emitter concern this engine does not implement; both
// subcommands consume already-compiled artifacts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/loomphp/loom/pkg/fpm/handler"
	"github.com/loomphp/loom/runtime"
	"github.com/loomphp/loom/stdlib"
	"github.com/loomphp/loom/version"
	"github.com/loomphp/loom/vm"
)

func main() {
	app := &cli.Command{
		Name:    "loom",
		Usage:   "Executes precompiled loom bytecode",
		Version: version.Version(),
		Commands: []*cli.Command{
			initCommand,     // loom init
			requireCommand,  // loom require
			installCommand,  // loom install
			updateCommand,   // loom update
			validateCommand, // loom validate
			fpmCommand,      // loom fpm
			composerCommand, // loom composer
			runCommand,      // loom run
			replCommand,     // loom repl
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return runChunkFile(cmd.Args().First())
			}
			return cli.ShowAppHelp(cmd)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Execute a precompiled bytecode chunk",
	ArgsUsage: "<chunk-file>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() == 0 {
			return fmt.Errorf("usage: loom run <chunk-file>")
		}
		return runChunkFile(cmd.Args().First())
	},
}

func runChunkFile(path string) error {
	c, err := handler.GobChunkLoader(path)
	if err != nil {
		return err
	}

	engine, err := runtime.NewEngine(stdlib.Extensions()...)
	if err != nil {
		return fmt.Errorf("failed to build engine: %v", err)
	}
	defer engine.Shutdown()

	sapi := runtime.SAPIRequest{
		ScriptFile: path,
		ScriptName: path,
		Env:        environMap(),
	}
	rc, err := engine.NewRequest(sapi, runtime.WriterSink{W: os.Stdout})
	if err != nil {
		return fmt.Errorf("failed to start request: %v", err)
	}
	defer engine.EndRequest(rc)

	_, runErr := vm.New().Execute(rc.Exec, c)
	return runErr
}

func environMap() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "Interactively load and run bytecode chunks",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runInteractiveShell()
	},
}

// runInteractiveShell builds one Engine and RequestContext for the
// whole session; each `:load` reuses that same context so functions,
// classes, and top-level variables a chunk declares stay visible to
// chunks loaded afterward.
func runInteractiveShell() error {
	engine, err := runtime.NewEngine(stdlib.Extensions()...)
	if err != nil {
		return fmt.Errorf("failed to build engine: %v", err)
	}
	defer engine.Shutdown()

	rc, err := engine.NewRequest(runtime.SAPIRequest{}, runtime.WriterSink{W: os.Stdout})
	if err != nil {
		return fmt.Errorf("failed to start request: %v", err)
	}
	defer engine.EndRequest(rc)

	rl, err := readline.New("loom> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("loom interactive shell. Commands: :load <file>, :quit")

	machine := vm.New()
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			return err
		}

		cmd, arg := splitCommand(line)
		switch cmd {
		case "":
			continue
		case ":quit", ":exit":
			return nil
		case ":load":
			if arg == "" {
				fmt.Println("usage: :load <chunk-file>")
				continue
			}
			c, err := handler.GobChunkLoader(arg)
			if err != nil {
				fmt.Printf("load error: %v\n", err)
				continue
			}
			if _, err := machine.Execute(rc.Exec, c); err != nil {
				fmt.Printf("runtime error: %v\n", err)
			}
		default:
			fmt.Printf("unknown command: %s (try :load <file> or :quit)\n", cmd)
		}
	}
	return nil
}

func splitCommand(line string) (cmd, arg string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' {
			return line[:i], trimLeadingSpace(line[i+1:])
		}
	}
	return line, ""
}

func trimLeadingSpace(s string) string {
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	return s
}
