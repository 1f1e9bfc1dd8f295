package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ludovic-Lesur/LVRM/internal/probe"
	"github.com/Ludovic-Lesur/LVRM/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	portFlag   string
	baudFlag   int
	configFlag string
	jsonFlag   bool
	demoFlag   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lvrm",
		Short: "LVRM AT console emulator and host tools",
		Long: `lvrm emulates the AT command console of the LVRM relay board and
provides host-side tools to talk to a real board.

The emulator answers the LVRM command set (relay control, analog
measurements, NVM access, radio uplink) over a serial port, and the
client commands drive a board from a script or probe for one.`,
	}

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board emulator on a serial port",
		Long: `Run the AT console emulator on a serial port.

Received command lines are parsed and dispatched against a simulated
board: relay state, analog measurements, NVM and radio uplink slot.
Settings come from the config file, overridden by flags.`,
		RunE: runServe,
	}
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (overrides config)")
	serveCmd.Flags().IntVarP(&baudFlag, "baud", "b", 0, "Baud rate (overrides config)")
	serveCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Config file (TOML)")
	serveCmd.Flags().BoolVar(&jsonFlag, "log-json", false, "JSON log output")

	// Exec command
	execCmd := &cobra.Command{
		Use:   "exec <command line>...",
		Short: "Run command lines through an in-process emulator",
		Long: `Run one or more AT command lines through a fresh emulator and print
the replies. Useful to check command syntax without a board.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}

	// Replay command
	replayCmd := &cobra.Command{
		Use:   "replay [script]",
		Short: "Send a command script to a board",
		Long: `Send the command lines of a script file to a board and report how
many succeeded. Lines starting with # and blank lines are skipped.

With --demo the embedded demo script runs against an in-process
emulator instead of a serial port.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReplay,
	}
	replayCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	replayCmd.Flags().IntVarP(&baudFlag, "baud", "b", serial.DefaultBaudRate, "Baud rate")
	replayCmd.Flags().BoolVar(&demoFlag, "demo", false, "Replay the embedded demo script in-process")

	// Scan command
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Probe serial ports for a board",
		Long:  "Probe serial ports for a board answering the AT ping and show its firmware version.",
		RunE:  runScan,
	}
	scanCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (scan all if not specified)")
	scanCmd.Flags().IntVarP(&baudFlag, "baud", "b", serial.DefaultBaudRate, "Baud rate")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lvrm %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	rootCmd.AddCommand(serveCmd, execCmd, replayCmd, scanCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if portFlag != "" {
		result, err := probe.ProbePort(portFlag, baudFlag)
		if err != nil {
			return fmt.Errorf("failed to probe %s: %w", portFlag, err)
		}
		printBoard(result)
		return nil
	}

	fmt.Println("Scanning for boards...")
	boards, err := probe.ListBoards(baudFlag)
	if err != nil {
		return err
	}

	if len(boards) == 0 {
		fmt.Println("No boards found")
		return nil
	}

	fmt.Printf("Found %d board(s):\n\n", len(boards))
	for i, b := range boards {
		fmt.Printf("Board %d:\n", i+1)
		printBoard(&b)
		fmt.Println()
	}

	return nil
}

func printBoard(r *probe.Result) {
	fmt.Printf("  Port:     %s\n", r.Port)
	if r.Version != "" {
		fmt.Printf("  Firmware: %s\n", r.Version)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}
