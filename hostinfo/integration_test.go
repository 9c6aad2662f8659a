package hostinfo_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"host-bridge/client"
	"host-bridge/codec"
	"host-bridge/hostinfo"
	"host-bridge/loadbalance"
	"host-bridge/middleware"
	"host-bridge/registry"
	"host-bridge/server"
)

func startHost(t *testing.T, host hostinfo.Host) (*server.Server, *hostinfo.Endpoint, registry.Registry) {
	t.Helper()
	svr := server.NewServer()
	svr.Use(middleware.RecoveryMiddleware())
	svr.Use(middleware.TimeOutMiddleware(time.Second))

	endpoint := hostinfo.NewEndpoint(hostinfo.DefaultNamespace, host)
	endpoint.Attach(svr)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go svr.ServeListener(l)
	t.Cleanup(func() { _ = svr.Shutdown(time.Second) })

	reg := registry.NewStaticRegistry()
	require.NoError(t, reg.Register(context.Background(), endpoint.Channel(),
		registry.ServiceInstance{Addr: l.Addr().String(), Weight: 1}, 10))
	return svr, endpoint, reg
}

func TestEndpointOverTheWire(t *testing.T) {
	for _, ct := range []codec.CodecType{codec.CodecTypeJSON, codec.CodecTypeBinary} {
		_, _, reg := startHost(t, hostinfo.Static{SDK: 34, Zone: "Asia/Riyadh"})
		cli := client.NewClient(reg, &loadbalance.RoundRobinBalancer{}, byte(ct), 1)
		t.Cleanup(func() { cli.Close() })

		sdk := hostinfo.NewSDK(cli, hostinfo.DefaultNamespace)
		ctx := context.Background()

		level, err := sdk.SdkInt(ctx)
		require.NoError(t, err)
		assert.Equal(t, 34, level)

		zone, err := sdk.TimeZoneName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Asia/Riyadh", zone)

		// repeated calls answer the same
		again, err := sdk.SdkInt(ctx)
		require.NoError(t, err)
		assert.Equal(t, level, again)
	}
}

func TestUnknownMethodOverTheWire(t *testing.T) {
	_, endpoint, reg := startHost(t, hostinfo.Static{SDK: 34, Zone: "UTC"})
	cli := client.NewClient(reg, &loadbalance.RoundRobinBalancer{}, byte(codec.CodecTypeJSON), 1)
	defer cli.Close()

	err := cli.Invoke(context.Background(), endpoint.Channel(), "unknownMethod", nil, nil)
	assert.ErrorIs(t, err, client.ErrNotImplemented)

	// the channel keeps answering after a NotImplemented result
	var sdk int
	require.NoError(t, cli.Invoke(context.Background(), endpoint.Channel(), hostinfo.GetSdkInt, nil, &sdk))
	assert.Equal(t, 34, sdk)
}

func TestDetachedEndpointIsNotImplemented(t *testing.T) {
	svr, endpoint, reg := startHost(t, hostinfo.Static{SDK: 34, Zone: "UTC"})
	cli := client.NewClient(reg, &loadbalance.RoundRobinBalancer{}, byte(codec.CodecTypeBinary), 1)
	defer cli.Close()

	sdk := hostinfo.NewSDK(cli, hostinfo.DefaultNamespace)
	_, err := sdk.TimeZoneName(context.Background())
	require.NoError(t, err)

	endpoint.Detach(svr)
	assert.Empty(t, svr.Channels())

	_, err = sdk.TimeZoneName(context.Background())
	assert.ErrorIs(t, err, client.ErrNotImplemented)
}

func TestSystemEndpointOverTheWire(t *testing.T) {
	_, _, reg := startHost(t, hostinfo.NewSystem("UTC"))
	cli := client.NewClient(reg, &loadbalance.RoundRobinBalancer{}, byte(codec.CodecTypeJSON), 1)
	defer cli.Close()

	sdk := hostinfo.NewSDK(cli, hostinfo.DefaultNamespace)
	level, err := sdk.SdkInt(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, level, 0)

	zone, err := sdk.TimeZoneName(context.Background())
	require.NoError(t, err)
	_, err = time.LoadLocation(zone)
	assert.NoError(t, err, "zone %q", zone)
}

// TestEndpointDiscoveredThroughEtcd runs the full path against a local etcd:
// Serve registers the channel, the client discovers it and Shutdown removes it.
func TestEndpointDiscoveredThroughEtcd(t *testing.T) {
	reg, err := registry.NewEtcdRegistry([]string{"127.0.0.1:2379"})
	require.NoError(t, err)
	defer reg.Close()

	probe, cancel := context.WithTimeout(context.Background(), time.Second)
	_, err = reg.Discover(probe, "probe/sdk")
	cancel()
	if err != nil {
		t.Skipf("etcd not reachable: %v", err)
	}

	svr := server.NewServer(server.WithRegistryTTL(5))
	svr.Use(middleware.LoggingMiddleware())
	endpoint := hostinfo.NewEndpoint("com.example.etcd", hostinfo.Static{SDK: 33, Zone: "Europe/Istanbul"})
	endpoint.Attach(svr)

	errc := make(chan error, 1)
	go func() { errc <- svr.Serve("tcp", "127.0.0.1:0", "", reg) }()
	require.Eventually(t, func() bool {
		instances, err := reg.Discover(context.Background(), endpoint.Channel())
		return err == nil && len(instances) == 1
	}, 3*time.Second, 50*time.Millisecond)

	cli := client.NewClient(reg, loadbalance.NewConsistentHashBalancer(), byte(codec.CodecTypeBinary), 2)
	defer cli.Close()

	sdk := hostinfo.NewSDK(cli, "com.example.etcd")
	level, err := sdk.SdkInt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33, level)

	require.NoError(t, svr.Shutdown(3*time.Second))
	require.NoError(t, <-errc)

	instances, err := reg.Discover(context.Background(), endpoint.Channel())
	require.NoError(t, err)
	assert.Empty(t, instances)
}
