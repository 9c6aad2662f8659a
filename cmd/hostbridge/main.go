// Package main provides the hostbridge entry point.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"host-bridge/config"
	"host-bridge/logger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	app := kingpin.New("hostbridge", "Host bridge endpoint: answers getSdkInt and getTimeZoneName on <namespace>/sdk")
	app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Default(strconv.FormatBool(cfg.Verbose)).BoolVar(&cfg.Verbose)
	app.Flag("logfile", "Path to log file (default: stdout)").Default(cfg.LogFile).StringVar(&cfg.LogFile)
	app.Flag("namespace", "Application namespace; the channel is <namespace>/sdk").Default(cfg.Namespace).StringVar(&cfg.Namespace)
	app.Flag("codec", "Wire codec (json, binary)").Default(cfg.Codec).EnumVar(&cfg.Codec, "json", "binary")

	serveCmd := app.Command("serve", "Serve the endpoint (default)").Default()
	serveCmd.Flag("listen", "Listen address").Default(cfg.Listen).StringVar(&cfg.Listen)
	serveCmd.Flag("network", "Listen network (tcp, tcp4, tcp6, unix)").Default(cfg.Network).StringVar(&cfg.Network)
	serveCmd.Flag("advertise", "Address registered for discovery (default: listener address)").Default(cfg.Advertise).StringVar(&cfg.Advertise)
	etcd := serveCmd.Flag("etcd", "etcd endpoint, repeatable (default: in-memory registry)").Strings()
	serveCmd.Flag("metrics-listen", "Address of the Prometheus /metrics listener (empty: disabled)").Default(cfg.MetricsListen).StringVar(&cfg.MetricsListen)
	serveCmd.Flag("timezone-fallback", "Zone id reported when the host zone cannot be detected").Default(cfg.TimeZoneFallback).StringVar(&cfg.TimeZoneFallback)

	var call callOptions
	callCmd := app.Command("call", "Invoke a method on a running endpoint and print the result")
	callCmd.Arg("method", "Method name, e.g. getSdkInt").Required().StringVar(&call.method)
	callCmd.Flag("channel", "Channel name (default: <namespace>/sdk)").StringVar(&call.channel)
	callCmd.Flag("addr", "Endpoint address").Default(defaultCallAddr(cfg.Listen)).StringVar(&call.addr)
	callCmd.Flag("args", "JSON encoded arguments").StringVar(&call.args)

	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	if len(*etcd) > 0 {
		cfg.EtcdEndpoints = *etcd
	}

	closer, err := logger.Init(cfg.Verbose, cfg.LogFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	if err := cfg.Validate(); err != nil {
		zlog.Error().Err(err).Msg("Config validation failed")
		zlog.Info().Msg("Please provide valid settings via flags or HOSTBRIDGE_* environment variables.")
		os.Exit(1)
	}

	switch command {
	case serveCmd.FullCommand():
		err = serve(cfg)
	case callCmd.FullCommand():
		err = invoke(cfg, call)
	}
	if err != nil {
		zlog.Error().Err(err).Msgf("%s failed", command)
		closer.Close()
		os.Exit(1)
	}
}
