//go:build linux

package watcher

import (
	"github.com/pilebones/go-udev/netlink"

	"github.com/five82/ripperd/internal/rlog"
)

// NetlinkNudge starts a best-effort udev netlink listener that nudges the
// Watcher into polling immediately on a block-device change/add event,
// instead of waiting out the full poll interval. It is supplementary: a
// connection failure is logged and ignored, since the poll loop alone
// satisfies §4.4. Grounded on
// five82-spindle/internal/daemon/netlink_monitor.go's matcher/monitor-loop
// shape.
func (w *Watcher) NetlinkNudge(stop <-chan struct{}) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("netlink connect failed, falling back to polling only", rlog.Error(err))
		return
	}

	action := "change|add"
	rule := netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "block"},
	}
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(rule)

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, rules)

	go func() {
		defer conn.Close()
		for {
			select {
			case <-stop:
				close(quit)
				return
			case <-queue:
				w.Nudge()
			case err := <-errs:
				w.logger.Debug("netlink monitor error", rlog.Error(err))
			}
		}
	}()
}
