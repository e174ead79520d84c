// Package ident derives a stable device identifier for the edge agent.
package ident

import (
	"encoding/hex"
	"fmt"
	"hash"
	"log/slog"
	"net"
	"sort"
	"strings"
)

type Identity interface {
	// DeviceID is stable across reinstalls on the same hardware.
	DeviceID() string
}

// InterfaceLister returns the host network interfaces. net.Interfaces in production.
type InterfaceLister func() ([]net.Interface, error)

type macID struct {
	rawMac []string
	name   string

	hasher hash.Hash
}

var _ Identity = (*macID)(nil)

func (m *macID) DeviceID() string {
	m.hasher.Reset()
	m.hasher.Write([]byte(m.name))
	m.hasher.Write([]byte(strings.Join(m.rawMac, "")))
	return hex.EncodeToString(m.hasher.Sum([]byte{}))
}

// IdFromMac hashes name together with every hardware address on the host.
func IdFromMac(
	hasher hash.Hash,
	name string,
) (Identity, error) {
	return IdFromInterfaces(hasher, name, net.Interfaces)
}

func IdFromInterfaces(
	hasher hash.Hash,
	name string,
	list InterfaceLister,
) (Identity, error) {
	interfaces, err := list()
	if err != nil {
		return nil, fmt.Errorf("listing network interfaces: %w", err)
	}

	// sorted so that interface enumeration order does not change the ID
	var macs []string
	for _, intf := range interfaces {
		if len(intf.HardwareAddr) == 0 {
			continue
		}
		macs = append(macs, intf.HardwareAddr.String())
	}
	sort.Strings(macs)
	slog.With("macs", len(macs)).Debug(fmt.Sprintf("got mac addresses : %s", strings.Join(macs, ",")))

	return &macID{
		rawMac: macs,
		name:   name,
		hasher: hasher,
	}, nil
}
