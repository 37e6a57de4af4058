package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ipAddrBoth = `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN group default
    link/loopback 00:00:00:00:00:00 brd 00:00:00:00:00:00
    inet 127.0.0.1/8 scope host lo
    inet6 ::1/128 scope host
5: usb0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    link/ether 02:00:00:00:00:01 brd ff:ff:ff:ff:ff:ff
    inet 192.168.1.2/24 brd 192.168.1.255 scope global usb0
6: rndis0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    link/ether 02:00:00:00:00:02 brd ff:ff:ff:ff:ff:ff
    inet 192.168.42.10/24 brd 192.168.42.255 scope global rndis0
    inet6 fe80::2/64 scope link
7: wlan0: <BROADCAST,MULTICAST> mtu 1500 qdisc noop state DOWN qlen 1000
`

func TestTetherInterface(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   InterfaceStatus
		wantOK bool
	}{
		{
			name:   "rndis0 preferred over earlier usb0",
			in:     ipAddrBoth,
			want:   InterfaceStatus{Name: RNDISInterface, State: StateUp, Address: "192.168.42.10"},
			wantOK: true,
		},
		{
			name: "rndis0 preferred over later usb0",
			in: `6: rndis0: <BROADCAST,MULTICAST> mtu 1500 qdisc noop state DOWN qlen 1000
5: usb0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    inet 192.168.1.2/24 brd 192.168.1.255 scope global usb0
`,
			want:   InterfaceStatus{Name: RNDISInterface, State: StateDown},
			wantOK: true,
		},
		{
			name: "down usb0 then up rndis0",
			in: `4: usb0: <BROADCAST,MULTICAST> mtu 1500 qdisc noop state DOWN qlen 1000
5: rndis0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    inet 192.168.1.5/24 brd 192.168.1.255 scope global rndis0
`,
			want:   InterfaceStatus{Name: RNDISInterface, State: StateUp, Address: "192.168.1.5"},
			wantOK: true,
		},
		{
			name: "usb0 alone",
			in: `5: usb0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    inet 192.168.1.2/24 brd 192.168.1.255 scope global usb0
`,
			want:   InterfaceStatus{Name: USBInterface, State: StateUp, Address: "192.168.1.2"},
			wantOK: true,
		},
		{
			name: "first usb0 wins",
			in: `5: usb0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    inet 192.168.1.2/24 brd 192.168.1.255 scope global usb0
8: usb0: <BROADCAST,MULTICAST> mtu 1500 qdisc noop state DOWN qlen 1000
`,
			want:   InterfaceStatus{Name: USBInterface, State: StateUp, Address: "192.168.1.2"},
			wantOK: true,
		},
		{
			name: "address of next interface not attributed",
			in: `6: rndis0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    link/ether 02:00:00:00:00:02 brd ff:ff:ff:ff:ff:ff
7: wlan0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UP qlen 1000
    inet 10.1.1.5/24 brd 10.1.1.255 scope global wlan0
`,
			want:   InterfaceStatus{Name: RNDISInterface, State: StateUp},
			wantOK: true,
		},
		{
			name: "no tether interface",
			in: `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN group default
    inet 127.0.0.1/8 scope host lo
`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TetherInterface(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("TetherInterface() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TetherInterface() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterfaceStatusReady(t *testing.T) {
	if !(InterfaceStatus{Name: "rndis0", State: StateUp, Address: "10.0.0.2"}).Ready() {
		t.Error("up interface with address not ready")
	}
	if (InterfaceStatus{Name: "rndis0", State: StateUp}).Ready() {
		t.Error("interface without address reported ready")
	}
	if (InterfaceStatus{Name: "rndis0", State: StateDown, Address: "10.0.0.2"}).Ready() {
		t.Error("down interface reported ready")
	}
}

func TestLinks(t *testing.T) {
	want := []string{"lo", "usb0", "rndis0", "wlan0"}
	if diff := cmp.Diff(want, Links(ipAddrBoth)); diff != "" {
		t.Errorf("Links() mismatch (-want +got):\n%s", diff)
	}
}

func TestTunnelPresent(t *testing.T) {
	withTun := ipAddrBoth + "9: tun0: <POINTOPOINT,UP,LOWER_UP> mtu 1500 qdisc pfifo_fast state UNKNOWN qlen 500\n"
	if !TunnelPresent(withTun) {
		t.Error("tun0 not detected")
	}
	if TunnelPresent(ipAddrBoth) {
		t.Error("tun0 reported without a tun0 interface")
	}
}
