// Package watcher runs the watch cycle: probe, login, read status, decide, then reboot or logout.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/argon/common"
	"dev.hon.one/argon/console"
	"dev.hon.one/argon/db"
	"dev.hon.one/argon/policy"
	"dev.hon.one/argon/util"
)

// State - Where in the cycle the watcher is.
type State int

// Cycle states.
const (
	Idle State = iota
	Probing
	LoggingIn
	ReadingStatus
	Deciding
	Rebooting
	LoggingOut
)

var stateNames = map[State]string{
	Idle:          "Idle",
	Probing:       "Probing",
	LoggingIn:     "LoggingIn",
	ReadingStatus: "ReadingStatus",
	Deciding:      "Deciding",
	Rebooting:     "Rebooting",
	LoggingOut:    "LoggingOut",
}

func (state State) String() string {
	if name, ok := stateNames[state]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(state))
}

// cleanupLogoutTimeout - Bound for logging out after a failed cycle.
const cleanupLogoutTimeout = 10 * time.Second

// Prober - Tells if the device responds at all.
type Prober interface {
	IsReachable(ctx context.Context) bool
}

// Config - Settings of a watcher.
type Config struct {
	Source        string // Device address, for logs and storage
	WANLabel      string
	Interval      time.Duration
	CycleTimeout  time.Duration
	ScreenshotDir string         // Empty disables screenshots on failure
	Status        *common.Status // Defaults to the global status
}

// Watcher - Owns the console session and the last observed address across cycles.
// Not safe for concurrent use, cycles run one at a time.
type Watcher struct {
	config  Config
	console console.DeviceConsole
	prober  Prober
	state   State
	address common.AddressRecord
}

// New - Create an idle watcher with an unknown address.
func New(config Config, deviceConsole console.DeviceConsole, prober Prober) *Watcher {
	if config.Status == nil {
		config.Status = &common.GlobalStatus
	}
	return &Watcher{
		config:  config,
		console: deviceConsole,
		prober:  prober,
		state:   Idle,
		address: common.UnknownAddress(time.Now()),
	}
}

// Address - The last observed address.
func (watcher *Watcher) Address() common.AddressRecord {
	return watcher.address
}

// State - The current cycle state.
func (watcher *Watcher) State() State {
	return watcher.state
}

// Run - Run cycles until the context is done, waiting the interval after each.
func (watcher *Watcher) Run(ctx context.Context) {
	for ctx.Err() == nil {
		watcher.RunCycle(ctx)

		util.Tagged(util.TagInfo).Infof("Will check again in %v", watcher.config.Interval)
		timer := time.NewTimer(watcher.config.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
}

// RunCycle - Run a single cycle. Failures are logged and returned in the entry, never propagated.
func (watcher *Watcher) RunCycle(parent context.Context) common.CycleEntry {
	ctx, cancel := context.WithTimeout(parent, watcher.config.CycleTimeout)
	defer cancel()

	startTime := time.Now()
	entry := common.CycleEntry{
		Time:   startTime,
		Source: watcher.config.Source,
	}
	util.Tagged(util.TagInfo).Infof("Last detected IP: %v", watcher.address)

	if err := watcher.runStates(ctx, &entry); err != nil {
		entry.Error = err.Error()
		log.WithError(err).WithFields(log.Fields{
			"state": watcher.state.String(),
		}).Error("Cycle failed")
		watcher.saveScreenshot()
		// Leave the session logged out, a rebooting device drops it by itself
		if watcher.state == LoggingIn || watcher.state == ReadingStatus {
			watcher.cleanupLogout()
		}
	}

	entry.FinalState = watcher.state.String()
	entry.Address = watcher.address
	entry.Duration = time.Since(startTime)
	watcher.transition(Idle)

	watcher.config.Status.RecordCycle(entry)
	db.StoreCycleEntry(entry)
	return entry
}

// Wraps the states to turn panics from the console into cycle failures.
func (watcher *Watcher) runStates(ctx context.Context, entry *common.CycleEntry) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()

	watcher.transition(Probing)
	util.Tagged(util.TagModemCheck).Info("Checking modem")
	if !watcher.prober.IsReachable(ctx) {
		util.Tagged(util.TagModemCheck).Info("Dead")
		watcher.address = common.UnknownAddress(time.Now())
		return nil
	}
	util.Tagged(util.TagModemCheck).Info("Alive")
	entry.Reachable = true

	watcher.transition(LoggingIn)
	if err := watcher.console.Login(ctx); err != nil {
		util.Tagged(util.TagLogin).Info("Failed")
		return fmt.Errorf("login failed: %w", err)
	}
	util.Tagged(util.TagLogin).Info("Success")
	entry.LoggedIn = true

	watcher.transition(ReadingStatus)
	address, found, err := watcher.console.ReadStatus(ctx, watcher.config.WANLabel)
	if err != nil {
		log.WithError(err).Warn("Failed to read status, address unknown")
		found = false
	}
	if found {
		watcher.address = common.KnownAddress(address, time.Now())
	} else {
		watcher.address = common.UnknownAddress(time.Now())
	}
	util.Tagged(util.TagInfo).Infof("Detected IP: %v", watcher.address)

	watcher.transition(Deciding)
	if policy.ShouldRestart(watcher.address) {
		entry.Restart = true
		return watcher.reboot(ctx, entry)
	}

	watcher.transition(LoggingOut)
	if err := watcher.console.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	util.Tagged(util.TagLogout).Info("Success")
	return nil
}

func (watcher *Watcher) reboot(ctx context.Context, entry *common.CycleEntry) error {
	watcher.transition(Rebooting)
	util.Tagged(util.TagRestart).Info("Restarting modem")

	// Whatever the outcome, the current address no longer counts
	rebootAddress := watcher.address.Value
	watcher.address = common.UnknownAddress(time.Now())
	entry.Rebooted = true

	err := watcher.console.Reboot(ctx)
	db.StoreRebootEntry(common.RebootEntry{
		Time:    time.Now(),
		Source:  watcher.config.Source,
		Address: rebootAddress,
		Success: err == nil,
	})
	if err != nil {
		return fmt.Errorf("reboot failed: %w", err)
	}
	return nil
}

func (watcher *Watcher) transition(next State) {
	log.WithFields(log.Fields{
		"from": watcher.state.String(),
		"to":   next.String(),
	}).Trace("State transition")
	watcher.state = next
}

func (watcher *Watcher) cleanupLogout() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupLogoutTimeout)
	defer cancel()
	if err := watcher.console.Logout(ctx); err != nil {
		log.WithError(err).Warn("Failed to log out after failed cycle")
	}
}

func (watcher *Watcher) saveScreenshot() {
	if watcher.config.ScreenshotDir == "" {
		return
	}
	screenshotter, ok := watcher.console.(console.Screenshotter)
	if !ok {
		return
	}
	name := fmt.Sprintf("%v-%v.html", time.Now().Format("20060102-150405"), strings.ToLower(watcher.state.String()))
	path := filepath.Join(watcher.config.ScreenshotDir, name)
	if err := screenshotter.Screenshot(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to save screenshot")
		return
	}
	log.WithField("path", path).Info("Saved screenshot")
}
