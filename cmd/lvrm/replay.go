package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Ludovic-Lesur/LVRM/embedded"
	"github.com/Ludovic-Lesur/LVRM/internal/client"
	"github.com/Ludovic-Lesur/LVRM/internal/command"
	"github.com/Ludovic-Lesur/LVRM/internal/probe"
	"github.com/Ludovic-Lesur/LVRM/internal/serial"
)

const replayTimeout = 5 * time.Second

// scriptLines extracts the command lines of a script, dropping comments and
// blank lines.
func scriptLines(script []byte) []string {
	var commands []string
	for _, l := range strings.Split(string(script), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		commands = append(commands, l)
	}
	return commands
}

func runReplay(cmd *cobra.Command, args []string) error {
	// Pick the script.
	var script []byte
	switch {
	case len(args) == 1:
		var err error
		script, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
	case demoFlag:
		script = embedded.DemoScript()
	default:
		return fmt.Errorf("need a script file or --demo")
	}

	commands := scriptLines(script)
	if len(commands) == 0 {
		return fmt.Errorf("script contains no commands")
	}

	// Pick the link.
	var link io.ReadWriter
	if demoFlag {
		link = command.NewLink(command.New(nominalBoard(), nil, version))
	} else {
		portName := portFlag
		if portName == "" {
			fmt.Println("Detecting board...")
			result, err := probe.FindBoard(baudFlag)
			if err != nil {
				return fmt.Errorf("board detection failed: %w", err)
			}
			portName = result.Port
			fmt.Printf("Found board on %s\n", result.Port)
		}

		port, err := serial.Open(portName, baudFlag)
		if err != nil {
			return fmt.Errorf("failed to open port: %w", err)
		}
		defer port.Close()
		link = port
	}

	c := client.New(link, replayTimeout)

	bar := progressbar.NewOptions(len(commands),
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	passed := 0
	var failures []string

	for _, commandLine := range commands {
		_, err := c.Send(commandLine)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", commandLine, err))
		} else {
			passed++
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("\nReplayed %d command(s): %d ok, %d failed\n", len(commands), passed, len(failures))
	for _, f := range failures {
		fmt.Printf("  %s\n", f)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d command(s) failed", len(failures))
	}
	return nil
}
