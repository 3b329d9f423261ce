// Package main implements the caesar-transfer CLI: a thin wrapper
// exposing internal/session.Sender and internal/session.Receiver as
// "send" and "receive" subcommands, generalizing the teacher's
// cmd/bdlsnode/main.go multi-command cli.App shape from consensus
// participation to one end of a file transfer.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/caesar-transfer/caesar-transfer/internal/config"
	"github.com/caesar-transfer/caesar-transfer/internal/namegen"
	"github.com/caesar-transfer/caesar-transfer/internal/session"
	"github.com/caesar-transfer/caesar-transfer/internal/transport"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:                 "caesar-transfer",
		Usage:                "Send or receive files through a Caesar-Transfer relay",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			sendCommand(),
			receiveCommand(),
		},
		Action: func(c *cli.Context) error {
			cli.ShowAppHelp(c)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Offer one or more files under a transfer name",
		ArgsUsage: "FILE [FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "relay", Value: "127.0.0.1:4680", Usage: "relay address to connect to"},
			&cli.StringFlag{Name: "name", Usage: "transfer name (generated if omitted)"},
			&cli.IntFlag{Name: "chunk-size", Usage: "sender chunk size in bytes"},
		},
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("caesar-transfer send: at least one FILE is required")
			}

			cfg := &config.Config{RelayURL: c.String("relay"), ChunkSize: c.Int("chunk-size")}
			if err := cfg.ValidateSender(); err != nil {
				return err
			}

			name := c.String("name")
			if name == "" {
				generated, err := namegen.Generate()
				if err != nil {
					return err
				}
				name = generated
			}
			fmt.Printf("caesar-transfer: offering under name %q\n", name)

			conn, err := transport.Dial("tcp", cfg.RelayURL, 10*time.Second)
			if err != nil {
				return err
			}
			defer conn.Close()

			progress := func(fileIndex int, bytesDone, bytesTotal uint64) {
				fmt.Printf("\r[file %d] %s / %s", fileIndex, bytefmt.ByteSize(bytesDone), bytefmt.ByteSize(bytesTotal))
				if bytesDone == bytesTotal {
					fmt.Println()
				}
			}

			sender := session.NewSender(conn, cfg, name, paths, progress)
			if err := sender.Run(context.Background()); err != nil {
				return fmt.Errorf("caesar-transfer send: %w", err)
			}
			fmt.Println("caesar-transfer: transfer acknowledged")
			return nil
		},
	}
}

func receiveCommand() *cli.Command {
	return &cli.Command{
		Name:      "receive",
		Usage:     "Accept a transfer offered under a transfer name",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "relay", Value: "127.0.0.1:4680", Usage: "relay address to connect to"},
			&cli.StringFlag{Name: "dest", Value: ".", Usage: "destination directory"},
			&cli.BoolFlag{Name: "overwrite", Usage: "allow overwriting existing files at the destination"},
			&cli.BoolFlag{Name: "yes", Usage: "approve the announced file list without prompting"},
		},
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return fmt.Errorf("caesar-transfer receive: NAME is required")
			}

			cfg := &config.Config{
				RelayURL:       c.String("relay"),
				DestinationDir: c.String("dest"),
				Overwrite:      c.Bool("overwrite"),
			}
			if err := cfg.ValidateReceiver(); err != nil {
				return err
			}

			conn, err := transport.Dial("tcp", cfg.RelayURL, 10*time.Second)
			if err != nil {
				return err
			}
			defer conn.Close()

			autoApprove := c.Bool("yes")
			approve := func(entries []codec.FileEntry) bool {
				printFileList(entries)
				if autoApprove {
					return true
				}
				return confirmFromStdin()
			}

			progress := func(fileIndex int, bytesDone, bytesTotal uint64) {
				fmt.Printf("\r[file %d] %s / %s", fileIndex, bytefmt.ByteSize(bytesDone), bytefmt.ByteSize(bytesTotal))
				if bytesDone == bytesTotal {
					fmt.Println()
				}
			}

			receiver := session.NewReceiver(conn, cfg, name, approve, progress)
			if err := receiver.Run(context.Background()); err != nil {
				return fmt.Errorf("caesar-transfer receive: %w", err)
			}
			fmt.Println("caesar-transfer: transfer complete")
			return nil
		},
	}
}

func printFileList(entries []codec.FileEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Size"})
	var total uint64
	for _, e := range entries {
		table.Append([]string{e.Name, bytefmt.ByteSize(e.Size)})
		total += e.Size
	}
	table.SetFooter([]string{"Total", bytefmt.ByteSize(total)})
	table.Render()
}

func confirmFromStdin() bool {
	fmt.Print("Accept this transfer? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
