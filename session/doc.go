// Package session reads and writes multi-device recordings.
//
// A session file declares how many devices it holds and then carries one
// section per device. Each section starts with its id and type, a mouse
// also carries its initial pointer offset, and the rest is the device's
// evemu description followed by its recorded "E:" lines:
//
//	[Devices Begin]
//	count = 2
//	[Devices End]
//	[Device Begin]
//	id = 0
//	type = mouse
//	X = 100
//	Y = -100
//	N: Logitech USB Optical Mouse
//	...
//	E: 0.000001 0002 0000 1
//	[Device End]
//	[Device Begin]
//	id = 1
//	type = unknown
//	...
//	[Device End]
//
// Up to MaxDevices devices are allowed and at most one of them is a mouse.
package session
