//go:build linux || darwin || freebsd

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-x11/xselinput"
)

func sigHandler(ctx context.Context, conn *xselinput.Conn) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	signal.Ignore(syscall.SIGPIPE)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			log.Printf("xselwatch streams: %+v", conn.Snapshot())
		}
	}
}
