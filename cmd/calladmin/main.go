package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/onemack/calladmin/internal/commands"
	"github.com/onemack/calladmin/internal/config"
	"github.com/onemack/calladmin/internal/coordinator"
	"github.com/onemack/calladmin/internal/db/sqlite"
	"github.com/onemack/calladmin/internal/event"
	"github.com/onemack/calladmin/internal/frame"
	"github.com/onemack/calladmin/internal/infra"
	"github.com/onemack/calladmin/internal/lifecycle"
	"github.com/onemack/calladmin/internal/observability"
	"github.com/onemack/calladmin/internal/session"
	"github.com/onemack/calladmin/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.CaFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.Level(cfg.LogLevel))

	observability.Init(cfg.MetricsAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(cfg.DotPath), cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatalln("cant open report store")
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Errorln("cant close report store")
		}
	}()

	registry := session.NewRegistry()
	scheduler := frame.NewScheduler(time.Duration(cfg.TickRateMs) * time.Millisecond)
	bus := event.NewBus(0)

	bridge := newHostBridge(bus, os.Stdout)
	c := coordinator.NewCoordinator(cfg, client, webhook.NewDispatcher(cfg.WebhookURL), scheduler, bridge, bridge, registry)
	router := commands.NewRouter(c, registry, func(actor session.Player, outcome coordinator.Outcome) {
		bridge.PrintToChat(actor.Slot, outcome.String())
	})
	worker := event.NewWorker(bus, registry, func(slot int, name string, args []string) {
		scheduler.NextFrame(func() {
			if err := router.Dispatch(ctx, slot, name, args); err != nil {
				bridge.PrintToChat(slot, err.Error())
			}
		})
	})

	runtime := lifecycle.NewRuntime(scheduler, worker)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop runtime")
		}
	}()

	lineChan, errChan := readHostLines(ctx, os.Stdin)
	infra.GoRecoverable(-1, "host_loop", func() {
		runHostLoop(ctx, bridge, lineChan, errChan)
	})
}

func runHostLoop(ctx context.Context, bridge *hostBridge, lineChan <-chan string, errChan <-chan error) {
	for {
		select {
		case <-ctx.Done():
			log.Infoln("shutting down")
			return
		case err := <-errChan:
			if errors.Is(err, io.EOF) {
				log.Infoln("host closed the pipe, shutting down")
			} else {
				log.WithError(err).Errorln("host read failed")
			}
			return
		case line, ok := <-lineChan:
			if !ok {
				lineChan = nil
				continue
			}
			bridge.handleLine(line)
		}
	}
}

func readHostLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	ch := make(chan string)
	chErr := make(chan error, 1)

	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				chErr <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			chErr <- err
			return
		}
		chErr <- io.EOF
	}()

	return ch, chErr
}
