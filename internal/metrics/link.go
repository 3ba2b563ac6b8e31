package metrics

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
)

// linkCollector reports the byte counters of the network devices the
// telemetry link runs over.  They are read from procfs on every scrape.
type linkCollector struct {
	l      hclog.Logger
	netDev func() (procfs.NetDev, error)

	rx *prometheus.Desc
	tx *prometheus.Desc
}

func newLinkCollector() *linkCollector {
	return &linkCollector{
		l:      hclog.NewNullLogger(),
		netDev: selfNetDev,
		rx: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "link", "receive_bytes_total"),
			"Bytes received on the network device.",
			[]string{"device"}, nil,
		),
		tx: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "link", "transmit_bytes_total"),
			"Bytes sent on the network device.",
			[]string{"device"}, nil,
		),
	}
}

func selfNetDev() (procfs.NetDev, error) {
	p, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("procfs could not get process: %w", err)
	}
	return p.NetDev()
}

func (c *linkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rx
	ch <- c.tx
}

func (c *linkCollector) Collect(ch chan<- prometheus.Metric) {
	netDev, err := c.netDev()
	if err != nil {
		c.l.Debug("Error reading network stats", "error", err)
		return
	}
	for name, line := range netDev {
		if name == "lo" {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.rx, prometheus.CounterValue, float64(line.RxBytes), name)
		ch <- prometheus.MustNewConstMetric(c.tx, prometheus.CounterValue, float64(line.TxBytes), name)
	}
}
