//////////////////////////////////////////////////////////////////////////////
//
// Config contains configuration data for the TV input HAL
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package tvinput

type Config struct {
	// Capture device capability. Required.
	Device Device

	// Sink for asynchronous notifications toward the consuming framework.
	// Optional; nil discards notifications.
	Notifier Notifier
}
