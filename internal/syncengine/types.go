// SPDX-License-Identifier: MIT

// Package syncengine drives content synchronization between an Xtream
// panel and the local catalog cache: single-flight scheduling per account,
// a staged full-sync pipeline, incremental diffing, and a background tick
// loop that starts syncs on a configurable cadence.
package syncengine

import "time"

// Stage names the steps a sync reports. RunFull and RunIncremental emit
// categories, channels, movies and series in that order and write finalize
// into the terminal status; StageSeriesDetails is defined but neither
// runner emits it.
type Stage string

const (
	StageCategories Stage = "categories"
	StageChannels   Stage = "channels"
	StageMovies     Stage = "movies"
	StageSeries     Stage = "series"
	StageSeriesDetails Stage = "series_details"
	StageFinalize   Stage = "finalize"
)

// Progress is one point-in-time snapshot of a running sync, delivered to
// callers through Scheduler.Progress(account).
type Progress struct {
	Account     string
	Stage       Stage
	Percent     int
	ItemsDone   int
	ItemsTotal  int
	Message     string
	At          time.Time
}

// Result is the terminal outcome of a sync run.
type Result struct {
	Account  string
	Mode     string // "full" or "incremental"
	Started  time.Time
	Finished time.Time
	Channels int
	Movies   int
	Series   int
	Errors   []string
	Cancelled bool
}

// NetworkPolicy decides whether a background sync is allowed to run right
// now, abstracting over the device's current connectivity. It generalizes
// spec.md §4.6's "wifi_only" setting so the decision isn't hard-wired to
// any one platform API.
type NetworkPolicy interface {
	Allowed(wifiOnly bool) bool
}

// alwaysWiFiPolicy is the NetworkPolicy used when no platform-specific
// connectivity signal is wired in: it behaves as if WiFi were always
// available, so it allows a background sync whatever the wifi_only
// setting. Documented as an explicit Open Question resolution (see
// DESIGN.md): a real deployment plugs in a platform-specific policy.
type alwaysWiFiPolicy struct{}

func (alwaysWiFiPolicy) Allowed(wifiOnly bool) bool { return true }

// AlwaysWiFi is the default NetworkPolicy.
var AlwaysWiFi NetworkPolicy = alwaysWiFiPolicy{}
