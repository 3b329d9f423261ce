// Package main implements the caesar-relay rendezvous server: a thin
// CLI wrapper around internal/relay.Service, generalizing the
// teacher's cmd/bdlsnode/main.go "run" command from a consensus agent
// to a transfer relay.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caesar-transfer/caesar-transfer/internal/config"
	"github.com/caesar-transfer/caesar-transfer/internal/relay"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:                 "caesar-relay",
		Usage:                "Run a Caesar-Transfer rendezvous relay",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Value: ":4680",
				Usage: "address to bind the relay listener",
			},
			&cli.DurationFlag{
				Name:  "rooms-interval",
				Value: 0,
				Usage: "if set, periodically log the active room table at this interval",
			},
		},
		Action: runRelay,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runRelay(c *cli.Context) error {
	cfg := &config.Config{ListenAddr: c.String("listen")}
	if err := cfg.ValidateRelay(); err != nil {
		return err
	}

	tcpaddr, err := net.ResolveTCPAddr("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", tcpaddr)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	svc, err := relay.NewService(ln, logger)
	if err != nil {
		return err
	}
	defer svc.Close()
	logger.Println("caesar-relay: listening on", ln.Addr())

	if interval := c.Duration("rooms-interval"); interval > 0 {
		go logRoomsPeriodically(svc, interval)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Println("caesar-relay: shutting down")
	return nil
}

func logRoomsPeriodically(svc *relay.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		var buf strings.Builder
		svc.Registry().DebugTable(&buf)
		fmt.Fprint(os.Stderr, buf.String())
	}
}
