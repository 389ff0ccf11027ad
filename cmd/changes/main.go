// Command changes runs, inspects and undoes the change pipeline against the
// configured backends without starting the HTTP server.
//
//	changes [-format yaml|json] run
//	changes [-format yaml|json] undo [toChangeId]
//	changes [-format yaml|json] status
//	changes [-format yaml|json] audit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Apurer/inventory-orders-service/internal/app/api"
	"github.com/Apurer/inventory-orders-service/internal/app/bootstrap"
	changemapper "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/http/mapper"
	changesports "github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
	platformobservability "github.com/Apurer/inventory-orders-service/internal/platform/observability"
)

func main() {
	format := flag.String("format", "yaml", "output format: yaml or json")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-format yaml|json] run|undo [toChangeId]|status|audit\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, *format, flag.Args()); err != nil {
		log.Fatalf("changes: %v", err)
	}
}

func run(ctx context.Context, format string, args []string) error {
	out, err := newRenderer(os.Stdout, format)
	if err != nil {
		return err
	}
	cfg, err := api.LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, api.TelemetryConfig(cfg, "inventory-orders-changes"))
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	rt, err := bootstrap.Open(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer rt.Close()
	service, err := rt.ChangeService(ctx)
	if err != nil {
		return err
	}
	return dispatch(ctx, service, out, args)
}

func dispatch(ctx context.Context, service changesports.Service, out *renderer, args []string) error {
	switch args[0] {
	case "run":
		report, err := service.Run(ctx)
		if err != nil {
			return err
		}
		return out.render(changemapper.FromDomainReport(report))
	case "undo":
		target := ""
		if len(args) > 1 {
			target = args[1]
		}
		report, err := service.Undo(ctx, target)
		if err != nil {
			return err
		}
		return out.render(changemapper.FromDomainReport(report))
	case "status":
		statuses, err := service.Status(ctx)
		if err != nil {
			return err
		}
		return out.render(changemapper.FromDomainStatuses(statuses))
	case "audit":
		entries, err := service.History(ctx)
		if err != nil {
			return err
		}
		return out.render(changemapper.FromDomainAudit(entries))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
