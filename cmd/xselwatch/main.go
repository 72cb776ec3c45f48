// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/go-x11/xselinput"
	"github.com/go-x11/xselinput/internal/config"
	"github.com/go-x11/xselinput/internal/ioutil"
	"github.com/go-x11/xselinput/internal/metrics"
	"github.com/go-x11/xselinput/x11"
	"github.com/go-x11/xselinput/xlib"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "xselwatch"
	myApp.Usage = "watch a selection for ownership changes, dump each transfer to a sink directory"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{Name: "display", Value: "", Usage: "X display name, empty uses $DISPLAY"},
		cli.StringFlag{Name: "selection", Value: "CLIPBOARD", Usage: "selection to watch"},
		cli.StringFlag{Name: "target", Value: "UTF8_STRING", Usage: "target format to request"},
		cli.StringFlag{Name: "sinkdir", Value: ".", Usage: "directory to write each transfer's bytes into"},
		cli.IntFlag{Name: "poll", Value: 250, Usage: "owner-change poll interval, in milliseconds"},
		cli.BoolFlag{Name: "once", Usage: "exit after draining the first ownership change instead of watching forever"},
		cli.StringFlag{Name: "log", Value: "", Usage: "specify a log file to output, default goes to stderr"},
		cli.BoolFlag{Name: "quiet", Usage: "suppress per-transfer progress messages"},
		cli.StringFlag{Name: "metricslog", Value: "", Usage: "collect metrics to a CSV file, aware of time format in the filename, like ./metrics-20060102.log"},
		cli.IntFlag{Name: "metricsperiod", Value: 60, Usage: "metrics CSV collection period, in seconds"},
		cli.StringFlag{Name: "metricshttp", Value: "", Usage: "address to expose Prometheus metrics on, e.g. :9090"},
		cli.StringFlag{Name: "c", Value: "", Usage: "config from json file, which will override the command line flags"},
		cli.BoolFlag{Name: "pprof", Usage: "start profiling server on :6060"},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.Config{
		Display:       c.String("display"),
		Selection:     c.String("selection"),
		Target:        c.String("target"),
		SinkDir:       c.String("sinkdir"),
		Poll:          c.Int("poll"),
		Once:          c.Bool("once"),
		Log:           c.String("log"),
		Quiet:         c.Bool("quiet"),
		MetricsLog:    c.String("metricslog"),
		MetricsPeriod: c.Int("metricsperiod"),
		MetricsHTTP:   c.String("metricshttp"),
		Pprof:         c.Bool("pprof"),
	}

	if c.String("c") != "" {
		checkError(config.ParseJSON(&cfg, c.String("c")))
	}

	if cfg.Log != "" {
		f, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		checkError(err)
		defer f.Close()
		log.SetOutput(f)
	}

	if cfg.Pprof {
		go func() {
			log.Println(http.ListenAndServe("localhost:6060", nil))
		}()
	}

	log.Println("version:", VERSION)
	log.Println("selection:", cfg.Selection)
	log.Println("sink directory:", cfg.SinkDir)

	disp, err := xlib.Open(cfg.Display)
	if err != nil {
		return err
	}
	defer disp.Close()

	collector := metrics.New()
	conn := xselinput.NewConn(disp, xselinput.WithMetrics(collector))
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)

	if cfg.MetricsLog != "" {
		go metrics.CSVLogger(cfg.MetricsLog, time.Duration(cfg.MetricsPeriod)*time.Second, collector, stop)
	}

	parentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(parentCtx)

	g.Go(func() error { return ignoreCanceled(disp.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(sigHandler(ctx, conn)) })
	g.Go(func() error {
		err := watchSelection(ctx, conn, disp, cfg)
		cancel()
		return err
	})

	if cfg.MetricsHTTP != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collector)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsHTTP, Handler: mux}

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	return g.Wait()
}

// watchSelection polls for changes of the owner of cfg.Selection and
// opens a new Stream for every change it sees, writing the result to
// cfg.SinkDir. Polling, rather than the XFixes selection-change
// notification, is the in-scope substitute here (§1's explicit Non-goal).
// If cfg.Once is set, it drains exactly one transfer and returns.
func watchSelection(ctx context.Context, conn *xselinput.Conn, disp x11.Display, cfg config.Config) error {
	selAtom, err := disp.InternAtom(cfg.Selection)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.Poll) * time.Millisecond)
	defer ticker.Stop()

	var lastOwner x11.Window
	seq := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			owner, err := disp.SelectionOwner(selAtom)
			if err != nil {
				log.Println(err)
				continue
			}
			if owner == lastOwner {
				continue
			}
			lastOwner = owner
			if owner == x11.NoWindow {
				continue
			}

			seq++
			if cfg.Once {
				drainOnce(conn, cfg, seq)
				return nil
			}
			go drainOnce(conn, cfg, seq)
		}
	}
}

func drainOnce(conn *xselinput.Conn, cfg config.Config, seq int) {
	stream, err := conn.Open(cfg.Selection, cfg.Target, x11.Timestamp(0))
	if err != nil {
		log.Println(err)
		return
	}

	name := filepath.Join(cfg.SinkDir, fmt.Sprintf("%s-%04d.bin", cfg.Selection, seq))
	f, err := os.Create(name)
	if err != nil {
		log.Println(err)
		stream.Close()
		return
	}
	defer f.Close()

	n, err := ioutil.Copy(f, stream)
	if err != nil {
		log.Println(err)
		return
	}

	if !cfg.Quiet {
		log.Printf("%s: wrote %d bytes to %s", cfg.Selection, n, name)
	}
}

// ignoreCanceled treats the errgroup's own shutdown signal as a clean exit,
// so one member stopping the others via cancel doesn't turn g.Wait into a
// reported failure.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
