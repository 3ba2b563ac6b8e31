package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
)

func TestLinkCollector(t *testing.T) {
	c := newLinkCollector()
	c.netDev = func() (procfs.NetDev, error) {
		return procfs.NetDev{
			"wlan0": {Name: "wlan0", RxBytes: 1024, TxBytes: 2048},
			"lo":    {Name: "lo", RxBytes: 1, TxBytes: 1},
		}, nil
	}

	assert.Equal(t, 2, testutil.CollectAndCount(c))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "autopilot_link_receive_bytes_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "autopilot_link_transmit_bytes_total"))
}

func TestLinkCollectorReadError(t *testing.T) {
	c := newLinkCollector()
	c.netDev = func() (procfs.NetDev, error) { return nil, errors.New("no procfs") }

	assert.Equal(t, 0, testutil.CollectAndCount(c))
}
