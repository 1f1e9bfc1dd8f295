package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/Ludovic-Lesur/LVRM/embedded"
	"github.com/Ludovic-Lesur/LVRM/internal/board"
	"github.com/Ludovic-Lesur/LVRM/internal/command"
	"github.com/Ludovic-Lesur/LVRM/internal/config"
	"github.com/Ludovic-Lesur/LVRM/internal/line"
	"github.com/Ludovic-Lesur/LVRM/internal/serial"
)

// nominalBoard creates a board with samples modelling a 12 V supply and a
// light load, the typical bench setup.
func nominalBoard() *board.Board {
	return board.New(board.StaticSampler{
		board.ChannelVrefint: 1671,
		board.ChannelVin:     1638,
		board.ChannelVout:    1625,
		board.ChannelIout:    140,
	})
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse(embedded.DefaultConfig())
	if err != nil {
		return err
	}
	if configFlag != "" {
		cfg, err = config.Load(configFlag)
		if err != nil {
			return err
		}
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if baudFlag != 0 {
		cfg.Baud = baudFlag
	}
	if jsonFlag {
		cfg.LogJSON = true
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	port, err := serial.Open(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	processor := command.New(nominalBoard(), logger, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("console ready", "port", cfg.Port, "baud", cfg.Baud, "echo", cfg.Echo)

	var buffer []byte
	chunk := make([]byte, 256)

	for ctx.Err() == nil {
		n, err := port.ReadWithTimeout(chunk, 100*time.Millisecond)
		if err != nil {
			logger.Error("read failed", "error", err)
			return err
		}
		if n == 0 {
			continue
		}

		if cfg.Echo {
			if _, err := port.Write(chunk[:n]); err != nil {
				logger.Error("echo failed", "error", err)
				return err
			}
		}
		buffer = append(buffer, chunk[:n]...)

		for {
			received, remaining := line.Next(buffer)
			if received == nil {
				buffer = remaining
				break
			}
			buffer = remaining

			for _, reply := range processor.Process(received) {
				if _, err := port.Write([]byte(reply + "\r\n")); err != nil {
					logger.Error("write failed", "error", err)
					return err
				}
			}
		}
	}

	logger.Info("shutting down")
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	processor := command.New(nominalBoard(), nil, version)

	for _, commandLine := range args {
		for _, reply := range processor.Process([]byte(commandLine)) {
			cmd.Println(reply)
		}
	}
	return nil
}
