// Package shell executes the named host commands exposed on the shell
// channel (reboot, browser restart, display power and similar).
//
// The runner is single-flight: one command at a time, a concurrent
// request is rejected and the running command keeps going. Commands are
// looked up case-insensitively in the configured table and run through
// /bin/sh on a background goroutine.
//
// Display power commands get special treatment: running the configured
// power_on/power_off alias updates the cached backlight state eagerly,
// so the backlight channel reports the intended state immediately
// instead of waiting for a hardware read-back.
//
// Example usage:
//
//	runner := shell.NewRunner(cfg.Shell)
//	runner.SetOnChange(func() { registry.Publish("shell") })
//	runner.SetOnPowerState(backlight.SetPower)
//
//	if err := runner.Run("REBOOT"); err != nil {
//	    // ErrBusy or ErrUnknownCommand, command table unchanged
//	}
package shell
