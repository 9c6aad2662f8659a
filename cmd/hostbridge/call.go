package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/cockroachdb/errors"

	"host-bridge/client"
	"host-bridge/codec"
	"host-bridge/config"
	"host-bridge/loadbalance"
	"host-bridge/middleware"
	"host-bridge/registry"
)

type callOptions struct {
	method  string
	channel string
	addr    string
	args    string
}

// defaultCallAddr turns a listen address such as ":7420" into a dialable one.
func defaultCallAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func invoke(cfg *config.Config, opts callOptions) error {
	channel := opts.channel
	if channel == "" {
		channel = cfg.Channel()
	}

	reg := registry.NewStaticRegistry()
	if err := reg.Register(context.Background(), channel, registry.ServiceInstance{Addr: opts.addr, Weight: 1}, 0); err != nil {
		return err
	}

	cli := client.NewClient(reg, loadbalance.New(cfg.Balancer), byte(codec.ParseCodecType(cfg.Codec)), cfg.PoolSize)
	defer cli.Close()
	cli.Use(middleware.RetryMiddleware(3, 100*time.Millisecond))

	var args any
	if opts.args != "" {
		if !json.Valid([]byte(opts.args)) {
			return errors.Newf("--args is not valid JSON: %s", opts.args)
		}
		args = json.RawMessage(opts.args)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	var value json.RawMessage
	err := cli.Invoke(ctx, channel, opts.method, args, &value)
	if errors.Is(err, client.ErrNotImplemented) {
		fmt.Println("not implemented")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(string(value))
	return nil
}
