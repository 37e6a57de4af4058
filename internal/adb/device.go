package adb

import (
	"bufio"
	"fmt"
	"strings"
)

// ConnectionType indicates how a device is connected.
type ConnectionType string

const (
	USB     ConnectionType = "usb"
	WiFi    ConnectionType = "wifi"
	Unknown ConnectionType = "unknown"
)

// Device represents a connected ADB device.
type Device struct {
	Serial      string
	State       string // "device", "offline", "unauthorized", etc.
	ConnType    ConnectionType
	Model       string
	Product     string
	TransportID string
}

// IsOnline returns true if the device is in "device" state (ready).
func (d Device) IsOnline() bool {
	return d.State == "device"
}

// Devices returns all attached devices. It also serves as the startup
// check that the adb executable works.
func (c *Client) Devices() ([]Device, error) {
	unscoped := *c
	unscoped.Serial = ""
	out, ok := unscoped.Run(unscoped.Command("devices", "-l"), c.timeout(), true)
	if !ok {
		return nil, fmt.Errorf("adb devices failed: %s", strings.TrimSpace(out))
	}
	return parseDeviceList(out), nil
}

// parseDeviceList parses `adb devices -l` output.
func parseDeviceList(output string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{
			Serial: fields[0],
			State:  fields[1],
		}
		if strings.Contains(d.Serial, ":") {
			d.ConnType = WiFi
		} else {
			d.ConnType = USB
		}
		for _, f := range fields[2:] {
			key, value, found := strings.Cut(f, ":")
			if !found {
				continue
			}
			switch key {
			case "model":
				d.Model = value
			case "product":
				d.Product = value
			case "transport_id":
				d.TransportID = value
			}
		}
		devices = append(devices, d)
	}
	return devices
}
