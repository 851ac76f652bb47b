// Command ax-subagentd is the AgentX subagent binary.
//
// It loads process configuration (socket path, per-adapter refresh
// cadence), builds the MIB table from the arp/ifmib/fdb adapters, starts
// their background updaters, and serves AgentX requests against the
// master agent at the configured socket until interrupted (SIGINT /
// SIGTERM).
//
// Usage:
//
//	ax-subagentd [flags]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vpbank/ax-subagent/adapters/arp"
	"github.com/vpbank/ax-subagent/adapters/fdb"
	"github.com/vpbank/ax-subagent/adapters/ifmib"
	"github.com/vpbank/ax-subagent/config"
	"github.com/vpbank/ax-subagent/dbconn"
	"github.com/vpbank/ax-subagent/mib"
	pkgupdater "github.com/vpbank/ax-subagent/pkg/axsubagent/updater"
	axsession "github.com/vpbank/ax-subagent/session"
	"github.com/vpbank/ax-subagent/supervisor"
	"github.com/vpbank/ax-subagent/wire"
)

// RFC OID prefixes for the supplemented MIB modules (§ SUPPLEMENTED
// FEATURES). These are the conventional, well-known prefixes for the
// standard MIB objects each adapter implements — not configuration.
var (
	prefixIPNetToMediaPhysAddress = wire.ParseOIDMust("1.3.6.1.2.1.4.22.1.2")
	prefixIPRouteNextHop          = wire.ParseOIDMust("1.3.6.1.2.1.4.21.1.7")
	prefixDot1qTpFdbPort          = wire.ParseOIDMust("1.3.6.1.2.1.17.7.1.2.2.1.2")

	// ifNumber is a scalar; its registered prefix carries the conventional
	// ".0" instance suffix (see mib.Entry's doc comment), so a Get on
	// ifNumber.0 — what a real manager actually sends — resolves instead of
	// missing.
	prefixIfNumber      = wire.ParseOIDMust("1.3.6.1.2.1.2.1.0")
	prefixIfDescr       = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.2")
	prefixIfAdminStatus = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.7")
	prefixIfOperStatus  = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.8")
	prefixIfMtu         = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.4")
	prefixIfInOctets    = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.10")
	prefixIfInUcast     = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.11")
	prefixIfInDiscards  = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.13")
	prefixIfInErrors    = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.14")
	prefixIfOutOctets   = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.16")
	prefixIfOutUcast    = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.17")
	prefixIfOutDiscards = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.19")
	prefixIfOutErrors   = wire.ParseOIDMust("1.3.6.1.2.1.2.2.1.20")

	prefixIfHCInOctets  = wire.ParseOIDMust("1.3.6.1.2.1.31.1.1.1.6")
	prefixIfHCOutOctets = wire.ParseOIDMust("1.3.6.1.2.1.31.1.1.1.10")

	// agentRegistrationPrefixes is the full set registered with the master,
	// in priority order: ifTable/ifXTable first (the most frequently
	// queried MIB in practice), then arp's ipRouteNextHop, then arp's
	// ipNetToMediaPhysAddress, then fdb.
	agentRegistrationPrefixes = []wire.OID{
		wire.ParseOIDMust("1.3.6.1.2.1.2"),
		wire.ParseOIDMust("1.3.6.1.2.1.31.1"),
		wire.ParseOIDMust("1.3.6.1.2.1.4.21.1.7"),
		wire.ParseOIDMust("1.3.6.1.2.1.4.22"),
		wire.ParseOIDMust("1.3.6.1.2.1.17.7.1.2.2.1.2"),
	}
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ax-subagentd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		logLevel  string
		logFmt    string
		cfgPath   string
		socketOvr string
		descrOvr  string
	)

	flag.StringVar(&logLevel, "log.level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&logFmt, "log.fmt", "json", "Log format: json, text")
	flag.StringVar(&cfgPath, "config", "", "Override "+config.PathEnvVar)
	flag.StringVar(&socketOvr, "socket", "", "Override the configured AgentX master socket path")
	flag.StringVar(&descrOvr, "agent.descr", "", "Override the configured Open PDU description")
	flag.Parse()

	logger, err := buildLogger(logLevel, logFmt)
	if err != nil {
		return err
	}

	path := cfgPath
	if path == "" {
		path = config.PathFromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if socketOvr != "" {
		cfg.Socket = socketOvr
	}
	if descrOvr != "" {
		cfg.AgentDescr = descrOvr
	}

	// The backing key-value store is an external collaborator outside this
	// module's scope — dbconn.Connector is a pure interface, and the
	// in-memory fake stands in until a concrete client is wired at deploy
	// time the same way a real deployment would point mock_tables at an
	// actual Redis instance. Each updater runs in its own goroutine and gets
	// its own connector, so no connector is shared between tasks.
	ifUpdater := ifmib.New(dbconn.NewFake(), logger)
	arpUpdater := arp.New(dbconn.NewFake(), ifUpdater.Resolver(), logger)
	nextHopUpdater := arp.NewNextHopUpdater(dbconn.NewFake(), logger)
	bridgePortIdx := fdb.NewBridgePortIndex(dbconn.NewFake(), logger)
	fdbUpdater := fdb.New(dbconn.NewFake(), bridgePortIdx.Resolver(), ifUpdater.PortIndexBySAIID, logger)

	table, err := buildTable(ifUpdater, arpUpdater, nextHopUpdater, fdbUpdater)
	if err != nil {
		return fmt.Errorf("build mib table: %w", err)
	}

	sess := axsession.New(axsession.Config{
		SocketPath: cfg.Socket,
		AgentDescr: cfg.AgentDescr,
		Prefixes:   agentRegistrationPrefixes,
	}, table, nil, logger)

	sup := supervisor.New(sess, logger)
	for _, t := range []struct {
		name   string
		source pkgupdater.DataSource
	}{
		{"ifmib", ifUpdater},
		{"arp", arpUpdater},
		{"arp-nexthop", nextHopUpdater},
		{"fdb-bridgeport", bridgePortIdx},
		{"fdb", fdbUpdater},
	} {
		adapterCfg := cfg.Adapter(t.name)
		task := pkgupdater.New(pkgupdater.Params{
			Name:       t.name,
			Frequency:  adapterCfg.Frequency(),
			ReinitRate: adapterCfg.ReinitRate,
		}, t.source, logger)
		sup.AddTask(task.RunSupervised)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)
	logger.Info("ax-subagentd: running", "socket", cfg.Socket)

	select {
	case <-ctx.Done():
		logger.Info("ax-subagentd: received shutdown signal")
	case err := <-waitCrash(ctx, sup):
		logger.Error("ax-subagentd: a background task crashed, shutting down", "error", err)
	}

	sup.Stop()
	return nil
}

func waitCrash(ctx context.Context, sup *supervisor.Supervisor) <-chan error {
	out := make(chan error, 1)
	go func() {
		if err := sup.Wait(ctx); err != nil {
			out <- err
		}
	}()
	return out
}

// buildTable composes every adapter's MIB entries into one Table in
// registration-priority order.
func buildTable(ifUpdater *ifmib.Updater, arpUpdater *arp.Updater, nextHopUpdater *arp.NextHopUpdater, fdbUpdater *fdb.Updater) (*mib.Table, error) {
	b := mib.NewBuilder().
		AddEntry(ifUpdater.IfNumberEntry(prefixIfNumber)).
		AddEntry(ifUpdater.NameEntry(prefixIfDescr)).
		AddEntry(ifUpdater.AdminStatusEntry(prefixIfAdminStatus)).
		AddEntry(ifUpdater.OperStatusEntry(prefixIfOperStatus)).
		AddEntry(ifUpdater.MTUEntry(prefixIfMtu)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfInOctets, ifmib.IfInOctets)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfInUcast, ifmib.IfInUcastPkts)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfInDiscards, ifmib.IfInDiscards)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfInErrors, ifmib.IfInErrors)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfOutOctets, ifmib.IfOutOctets)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfOutUcast, ifmib.IfOutUcastPkts)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfOutDiscards, ifmib.IfOutDiscards)).
		AddEntry(ifUpdater.Counter32Entry(prefixIfOutErrors, ifmib.IfOutErrors)).
		AddEntry(ifUpdater.Counter64Entry(prefixIfHCInOctets, ifmib.IfHCInOctets)).
		AddEntry(ifUpdater.Counter64Entry(prefixIfHCOutOctets, ifmib.IfHCOutOctets)).
		AddEntry(arpUpdater.AsEntry(prefixIPNetToMediaPhysAddress)).
		AddEntry(nextHopUpdater.AsEntry(prefixIPRouteNextHop)).
		AddEntry(fdbUpdater.AsEntry(prefixDot1qTpFdbPort))

	return b.Build()
}

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}

	return slog.New(handler), nil
}
