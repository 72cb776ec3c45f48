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

// Package metrics tracks selection-transfer counters, exposing them both
// as Prometheus collectors and as a periodically-flushed CSV log.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the lifetime counters for every Stream opened on a
// Conn. The zero value is ready to use. All methods are safe for
// concurrent use.
type Collector struct {
	opened     uint64
	completed  uint64
	refused    uint64
	incr       uint64
	bytesTotal uint64
}

// New returns a ready Collector.
func New() *Collector {
	return &Collector{}
}

// AddBytes records n bytes delivered to a reader. It satisfies
// xselinput.MetricsSink.
func (c *Collector) AddBytes(n int) {
	atomic.AddUint64(&c.bytesTotal, uint64(n))
}

// Opened records a Stream transitioning into S0.
func (c *Collector) Opened() { atomic.AddUint64(&c.opened, 1) }

// Completed records a Stream reaching S3.
func (c *Collector) Completed() { atomic.AddUint64(&c.completed, 1) }

// Refused records a Stream whose owner declined to convert the selection.
func (c *Collector) Refused() { atomic.AddUint64(&c.refused, 1) }

// IncrStarted records a Stream that entered the INCR sub-protocol.
func (c *Collector) IncrStarted() { atomic.AddUint64(&c.incr, 1) }

// Header returns the CSV column names, in the same order ToSlice values
// appear in.
func (c *Collector) Header() []string {
	return []string{"TransfersOpened", "TransfersCompleted", "TransfersRefused", "IncrTransfers", "BytesDelivered"}
}

// ToSlice snapshots every counter as a CSV row, matching Header's order.
func (c *Collector) ToSlice() []string {
	return []string{
		uitoa(atomic.LoadUint64(&c.opened)),
		uitoa(atomic.LoadUint64(&c.completed)),
		uitoa(atomic.LoadUint64(&c.refused)),
		uitoa(atomic.LoadUint64(&c.incr)),
		uitoa(atomic.LoadUint64(&c.bytesTotal)),
	}
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements prometheus.Collector, exposing every counter as a
// Prometheus counter sampled at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	emit := func(name, help string, value uint64) {
		ch <- prometheus.MustNewConstMetric(
			prometheus.NewDesc("xselinput_"+name, help, nil, nil),
			prometheus.CounterValue,
			float64(value),
		)
	}
	emit("transfers_opened_total", "Selection transfers opened.", atomic.LoadUint64(&c.opened))
	emit("transfers_completed_total", "Selection transfers that reached completion.", atomic.LoadUint64(&c.completed))
	emit("transfers_refused_total", "Selection transfers the owner refused.", atomic.LoadUint64(&c.refused))
	emit("incr_transfers_total", "Selection transfers that used the INCR sub-protocol.", atomic.LoadUint64(&c.incr))
	emit("bytes_delivered_total", "Bytes delivered to readers across all transfers.", atomic.LoadUint64(&c.bytesTotal))
}

var _ prometheus.Collector = (*Collector)(nil)
