// etcd layout:
//
//	Key:   /host-bridge/{PathEscape(channel)}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Channel names contain '/', so they are path-escaped to keep prefix lookups exact.
// Registration uses TTL leases: if the host dies, the lease expires and the entry
// disappears with it.

package registry

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
	zlog "github.com/rs/zerolog/log"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/host-bridge/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client
	leases *xsync.MapOf[string, clientv3.LeaseID] // key → lease kept alive for it
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect etcd")
	}
	return &EtcdRegistry{client: c, leases: xsync.NewMapOf[string, clientv3.LeaseID]()}, nil
}

func channelPrefix(channel string) string {
	return keyPrefix + url.PathEscape(channel) + "/"
}

// Register puts the instance under a fresh lease and keeps the lease alive
// until Deregister or Close.
func (r *EtcdRegistry) Register(ctx context.Context, channel string, instance ServiceInstance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return errors.Wrap(err, "grant lease")
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return errors.Wrap(err, "encode instance")
	}

	key := channelPrefix(channel) + instance.Addr
	if _, err = r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}

	// KeepAlive must outlive the caller's ctx, it stops when the lease is revoked.
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return errors.Wrap(err, "keep lease alive")
	}
	if old, loaded := r.leases.LoadAndStore(key, lease.ID); loaded {
		r.revoke(old)
	}

	go func() {
		for range ch {
		}
		zlog.Debug().Str("key", key).Msg("etcd lease keepalive stopped")
	}()
	return nil
}

// Deregister removes the instance and revokes its lease.
func (r *EtcdRegistry) Deregister(ctx context.Context, channel string, addr string) error {
	key := channelPrefix(channel) + addr
	if _, err := r.client.Delete(ctx, key); err != nil {
		return errors.Wrapf(err, "delete %s", key)
	}
	if id, ok := r.leases.LoadAndDelete(key); ok {
		r.revoke(id)
	}
	return nil
}

func (r *EtcdRegistry) revoke(id clientv3.LeaseID) {
	if _, err := r.client.Revoke(context.Background(), id); err != nil {
		zlog.Warn().Err(err).Int64("lease", int64(id)).Msg("revoke etcd lease")
	}
}

// Watch re-reads the full instance list on every change under the channel prefix.
func (r *EtcdRegistry) Watch(ctx context.Context, channel string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, channelPrefix(channel), clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(ctx, channel)
			if err != nil {
				zlog.Warn().Err(err).Str("channel", channel).Msg("rediscover after watch event")
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Discover returns all currently registered instances for a channel.
func (r *EtcdRegistry) Discover(ctx context.Context, channel string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(ctx, channelPrefix(channel), clientv3.WithPrefix())
	if err != nil {
		return nil, errors.Wrapf(err, "discover %s", channel)
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			zlog.Warn().Err(err).Bytes("key", kv.Key).Msg("skip malformed instance")
			continue
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// Close revokes every lease still held and closes the etcd client.
func (r *EtcdRegistry) Close() error {
	r.leases.Range(func(key string, id clientv3.LeaseID) bool {
		r.revoke(id)
		return true
	})
	r.leases.Clear()
	return r.client.Close()
}
