// Package display adapts the host's display tooling (vcgencmd, ddcutil,
// xrandr or similar, whatever the config names) to the backlight and
// brightness_percent channels.
//
// Backlight power is cached: the hardware is read once at startup and
// the cache is updated eagerly whenever a configured power command runs,
// so the channel reports the intended state without polling hardware
// that may be slow or absent.
//
// Brightness maps the hardware range [min, max] onto 0-100% with the
// same formula in both directions, so values round-trip:
//
//	percent = round((raw - min) * 100 / (max - min))
//	raw     = min + round(percent * (max - min) / 100)
//
// Commands run through /bin/sh with {displayID} and {value} placeholders
// substituted.
package display
