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
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

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
	myApp.Name = "xselcat"
	myApp.Usage = "read one X11 selection and print it to stdout"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "display",
			Value: "",
			Usage: "X display name, empty uses $DISPLAY",
		},
		cli.StringFlag{
			Name:  "selection",
			Value: "CLIPBOARD",
			Usage: "selection to request: CLIPBOARD, PRIMARY, SECONDARY, ...",
		},
		cli.StringFlag{
			Name:  "target",
			Value: "UTF8_STRING",
			Usage: "target format to request the selection in",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress the 'opened/completed' progress messages",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command line flags",
		},
		cli.BoolFlag{
			Name:  "pprof",
			Usage: "start profiling server on :6060",
		},
		cli.StringFlag{
			Name:  "metrics",
			Value: "",
			Usage: "address to expose Prometheus metrics on, e.g. :9090 (empty disables)",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.Config{
		Display:     c.String("display"),
		Selection:   c.String("selection"),
		Target:      c.String("target"),
		Log:         c.String("log"),
		Quiet:       c.Bool("quiet"),
		Pprof:       c.Bool("pprof"),
		MetricsHTTP: c.String("metrics"),
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

	if !cfg.Quiet {
		log.Println("version:", VERSION)
		log.Println("selection:", cfg.Selection)
		log.Println("target:", cfg.Target)
	}

	disp, err := xlib.Open(cfg.Display)
	if err != nil {
		return errors.Wrap(err, "open display")
	}
	defer disp.Close()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go disp.Run(runCtx)

	collector := metrics.New()
	if cfg.MetricsHTTP != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collector)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			log.Println(http.ListenAndServe(cfg.MetricsHTTP, mux))
		}()
	}

	conn := xselinput.NewConn(disp, xselinput.WithMetrics(collector))
	defer conn.Close()

	stream, err := conn.Open(cfg.Selection, cfg.Target, x11.Timestamp(0))
	if err != nil {
		return errors.Wrap(err, "open selection stream")
	}

	n, err := ioutil.Copy(os.Stdout, stream)
	if err != nil {
		return errors.Wrap(err, "copy selection to stdout")
	}

	if !cfg.Quiet {
		log.Println(color.GreenString("delivered %d bytes", n))
	}

	return nil
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
