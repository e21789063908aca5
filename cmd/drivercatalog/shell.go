package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const (
	shellPrompt = ">> "
	shellIntro  = "NVIDIA driver catalog shell. Type 'help' for available commands, 'quit' to leave."
)

// NewShellCmd creates the shell command.
func NewShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Long: `Shell reads one command per line and runs it as if it had been given on
the command line, for example "init firefox", "scrape" or "cleanup".
A failing command prints its error and the shell keeps going.

Type "quit" or "exit" to leave.`,
		Args: cobra.NoArgs,
		RunE: runShellCmd,
	}
}

// runShellCmd executes the shell command.
func runShellCmd(cmd *cobra.Command, _ []string) error {
	var global []string
	if path := getConfigFlag(cmd); path != "" {
		global = append(global, "--config", path)
	}
	if getVerboseFlag(cmd) {
		global = append(global, "--verbose")
	}
	if format := getLogFormatFlag(cmd); format != logFormatText {
		global = append(global, "--log-format", format)
	}

	sh := &shell{
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		global: global,
	}
	return sh.run(cmd)
}

// shell is a line-oriented interpreter over the root command.
type shell struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// global are the persistent flags the shell was started with.
	global []string
}

func (s *shell) run(parent *cobra.Command) error {
	fmt.Fprintln(s.out, shellIntro)

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, shellPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "quit", "exit":
			return nil
		case "shell":
			fmt.Fprintln(s.errOut, "already in the shell")
			continue
		}

		root := NewRootCmd()
		root.SetIn(s.in)
		root.SetOut(s.out)
		root.SetErr(s.errOut)
		root.SetArgs(append(args, s.global...))
		if err := root.ExecuteContext(parent.Context()); err != nil {
			fmt.Fprintln(s.errOut, "Error:", err)
		}
		fmt.Fprintln(s.out)
	}
}
