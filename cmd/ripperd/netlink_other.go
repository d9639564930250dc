//go:build !linux

package main

// startNetlinkNudge is a no-op outside Linux; the Watcher's poll loop is
// the only wakeup source on those platforms.
func (d *daemon) startNetlinkNudge(stop <-chan struct{}) {}
