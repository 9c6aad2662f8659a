package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEtcdRegistry connects to a local etcd or skips the test.
func newEtcdRegistry(t *testing.T) *EtcdRegistry {
	t.Helper()
	reg, err := NewEtcdRegistry([]string{"localhost:2379"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := reg.client.Status(ctx, "localhost:2379"); err != nil {
		_ = reg.client.Close()
		t.Skipf("etcd not reachable: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestEtcdRegisterAndDiscover(t *testing.T) {
	reg := newEtcdRegistry(t)
	ctx := context.Background()
	channel := "com.example.test/sdk"

	inst1 := ServiceInstance{Addr: "127.0.0.1:8001", Weight: 10, Version: "1.0"}
	inst2 := ServiceInstance{Addr: "127.0.0.1:8002", Weight: 5, Version: "1.0"}

	require.NoError(t, reg.Register(ctx, channel, inst1, 10))
	require.NoError(t, reg.Register(ctx, channel, inst2, 10))

	instances, err := reg.Discover(ctx, channel)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ServiceInstance{inst1, inst2}, instances)

	// a channel sharing the name prefix must not leak into the lookup
	other, err := reg.Discover(ctx, "com.example.test/sd")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, reg.Deregister(ctx, channel, inst1.Addr))

	instances, err = reg.Discover(ctx, channel)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, inst2.Addr, instances[0].Addr)

	require.NoError(t, reg.Deregister(ctx, channel, inst2.Addr))
}

func TestEtcdWatch(t *testing.T) {
	reg := newEtcdRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	channel := "com.example.watch/sdk"

	updates := reg.Watch(ctx, channel)
	time.Sleep(100 * time.Millisecond)

	inst := ServiceInstance{Addr: "127.0.0.1:8003", Weight: 1}
	require.NoError(t, reg.Register(ctx, channel, inst, 10))

	select {
	case instances := <-updates:
		assert.Contains(t, instances, inst)
	case <-ctx.Done():
		t.Fatal("no watch update received")
	}
	require.NoError(t, reg.Deregister(ctx, channel, inst.Addr))
}
