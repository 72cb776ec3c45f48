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

// Package config is the shared flag/JSON configuration surface for
// cmd/xselcat and cmd/xselwatch.
package config

import (
	"encoding/json"
	"os"
)

// Config holds every setting either binary accepts, whether from flags or
// from a JSON file passed with -c. Fields xselcat doesn't use (Once, Poll,
// SinkDir, MetricsLog, MetricsPeriod) are simply left at their zero value.
type Config struct {
	Display string `json:"display"`

	Selection string `json:"selection"`
	Target    string `json:"target"`

	Once    bool   `json:"once"`
	Poll    int    `json:"poll"`
	SinkDir string `json:"sinkdir"`

	Log           string `json:"log"`
	Quiet         bool   `json:"quiet"`
	MetricsLog    string `json:"metricslog"`
	MetricsPeriod int    `json:"metricsperiod"`
	Pprof         bool   `json:"pprof"`
	MetricsHTTP   string `json:"metricshttp"`
}

// ParseJSON decodes path into config, overriding whatever flag defaults
// the caller already populated.
func ParseJSON(config *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(config)
}
