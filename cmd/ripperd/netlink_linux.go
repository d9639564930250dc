//go:build linux

package main

// startNetlinkNudge wires the optional udev netlink listener into the
// daemon's Watcher on Linux, where pilebones/go-udev can actually dial a
// netlink socket. It is a supplementary wakeup only: the poll loop already
// satisfies the Watcher Loop contract on its own.
func (d *daemon) startNetlinkNudge(stop <-chan struct{}) {
	d.watcher.NetlinkNudge(stop)
}
