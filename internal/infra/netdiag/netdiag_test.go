package netdiag_test

import (
	"net"
	"strings"
	"testing"

	"github.com/decklive/decklive-bridge/internal/infra/netdiag"
)

func mustNet(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		t.Fatalf("bad cidr %q: %v", cidr, err)
	}
	ipnet.IP = ip.To4()
	return ipnet
}

func TestNoActiveInterfaceWarns(t *testing.T) {
	warnings := netdiag.Check([]netdiag.Iface{
		{Name: "lo", Up: true, Loopback: true, Networks: []*net.IPNet{mustNet(t, "127.0.0.1/8")}},
		{Name: "eth0", Up: false, Networks: []*net.IPNet{mustNet(t, "192.168.1.10/24")}},
	})
	if len(warnings) != 1 || !strings.Contains(warnings[0], "no active network interface") {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestHealthySingleInterfaceIsQuiet(t *testing.T) {
	warnings := netdiag.Check([]netdiag.Iface{
		{Name: "lo", Up: true, Loopback: true, Networks: []*net.IPNet{mustNet(t, "127.0.0.1/8")}},
		{Name: "eth0", Up: true, Networks: []*net.IPNet{mustNet(t, "192.168.1.10/24")}},
	})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestOverlappingSubnetsWarn(t *testing.T) {
	warnings := netdiag.Check([]netdiag.Iface{
		{Name: "eth0", Up: true, Networks: []*net.IPNet{mustNet(t, "192.168.1.10/24")}},
		{Name: "wlan0", Up: true, Networks: []*net.IPNet{mustNet(t, "192.168.1.20/24")}},
	})
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(warnings[0], "eth0") || !strings.Contains(warnings[0], "wlan0") {
		t.Errorf("warning does not name both interfaces: %s", warnings[0])
	}
}

func TestDisjointSubnetsAreQuiet(t *testing.T) {
	warnings := netdiag.Check([]netdiag.Iface{
		{Name: "eth0", Up: true, Networks: []*net.IPNet{mustNet(t, "192.168.1.10/24")}},
		{Name: "wlan0", Up: true, Networks: []*net.IPNet{mustNet(t, "10.0.0.5/24")}},
	})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestDownInterfacesDoNotOverlap(t *testing.T) {
	warnings := netdiag.Check([]netdiag.Iface{
		{Name: "eth0", Up: true, Networks: []*net.IPNet{mustNet(t, "192.168.1.10/24")}},
		{Name: "eth1", Up: false, Networks: []*net.IPNet{mustNet(t, "192.168.1.20/24")}},
	})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}
