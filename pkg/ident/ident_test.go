package ident_test

import (
	"crypto/sha256"
	"errors"
	"net"
	"testing"

	"github.com/otelfleet/pkghooks/pkg/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	hw, err := net.ParseMAC(s)
	require.NoError(t, err)
	return hw
}

func TestIdentFromMAC(t *testing.T) {
	provider, err := ident.IdFromMac(sha256.New(), "foo")
	require.NoError(t, err)

	id1 := provider.DeviceID()
	require.NotEmpty(t, id1)
	id2 := provider.DeviceID()
	require.NotEmpty(t, id2)
	require.Equal(t, id1, id2)
}

func TestIdentOrderIndependent(t *testing.T) {
	a := net.Interface{Name: "eth0", HardwareAddr: mustMAC(t, "00:11:22:33:44:55")}
	b := net.Interface{Name: "wlan0", HardwareAddr: mustMAC(t, "66:77:88:99:aa:bb")}
	lo := net.Interface{Name: "lo"}

	first, err := ident.IdFromInterfaces(sha256.New(), "edge", func() ([]net.Interface, error) {
		return []net.Interface{a, lo, b}, nil
	})
	require.NoError(t, err)
	second, err := ident.IdFromInterfaces(sha256.New(), "edge", func() ([]net.Interface, error) {
		return []net.Interface{b, a}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, first.DeviceID(), second.DeviceID())

	renamed, err := ident.IdFromInterfaces(sha256.New(), "other", func() ([]net.Interface, error) {
		return []net.Interface{a, b}, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.DeviceID(), renamed.DeviceID())
}

func TestIdentListError(t *testing.T) {
	_, err := ident.IdFromInterfaces(sha256.New(), "edge", func() ([]net.Interface, error) {
		return nil, errors.New("no netlink")
	})
	require.Error(t, err)
}
