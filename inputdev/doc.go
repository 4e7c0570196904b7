// Package inputdev discovers kernel input devices with go-evdev.
//
// It backs the device picker of the command line tool, the grab check done
// before a recording starts, and the lookup of the event node the kernel
// assigned to a freshly created virtual device.
package inputdev
