// Package netdiag inspects local network interfaces at startup and
// produces advisory warnings for configurations that commonly break
// equipment discovery, such as having no usable interface or two
// interfaces on overlapping subnets. Warnings are surfaced in status
// snapshots; nothing here blocks startup.
package netdiag

import (
	"fmt"
	"net"

	"github.com/decklive/decklive-bridge/internal/logging"
)

// Iface is one interface with its IPv4 networks, decoupled from the
// net package so checks stay testable.
type Iface struct {
	Name     string
	Up       bool
	Loopback bool
	Networks []*net.IPNet
}

// Warnings inspects the host's interfaces and returns advisories.
// Enumeration failures yield a single warning rather than an error.
func Warnings() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		logging.For("netdiag").Warnf("interface enumeration failed: %v", err)
		return []string{fmt.Sprintf("could not inspect network interfaces: %v", err)}
	}

	var out []Iface
	for _, ifi := range ifaces {
		entry := Iface{
			Name:     ifi.Name,
			Up:       ifi.Flags&net.FlagUp != 0,
			Loopback: ifi.Flags&net.FlagLoopback != 0,
		}
		addrs, err := ifi.Addrs()
		if err == nil {
			for _, addr := range addrs {
				ipnet, ok := addr.(*net.IPNet)
				if !ok || ipnet.IP.To4() == nil {
					continue
				}
				entry.Networks = append(entry.Networks, ipnet)
			}
		}
		out = append(out, entry)
	}
	return Check(out)
}

// Check evaluates the advisory rules against an interface inventory.
func Check(ifaces []Iface) []string {
	var warnings []string

	active := 0
	for _, ifi := range ifaces {
		if ifi.Up && !ifi.Loopback && len(ifi.Networks) > 0 {
			active++
		}
	}
	if active == 0 {
		warnings = append(warnings, "no active network interface with an IPv4 address; equipment on the network will not be reachable")
	}

	// Two interfaces on overlapping subnets make the kernel's route
	// choice ambiguous, which breaks gear that replies to the wrong
	// interface.
	for i := 0; i < len(ifaces); i++ {
		for j := i + 1; j < len(ifaces); j++ {
			a, b := ifaces[i], ifaces[j]
			if !a.Up || !b.Up || a.Loopback || b.Loopback {
				continue
			}
			for _, na := range a.Networks {
				for _, nb := range b.Networks {
					if na.Contains(nb.IP) || nb.Contains(na.IP) {
						warnings = append(warnings, fmt.Sprintf(
							"interfaces %s (%s) and %s (%s) are on overlapping subnets; equipment replies may take the wrong path",
							a.Name, na.String(), b.Name, nb.String()))
					}
				}
			}
		}
	}

	return warnings
}
