package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/corralhq/corral/internal/cache"
	"github.com/corralhq/corral/internal/config"
	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/gateway"
	"github.com/corralhq/corral/internal/logging"
	"github.com/corralhq/corral/internal/netmon"
	"github.com/corralhq/corral/internal/optimistic"
	"github.com/corralhq/corral/internal/queue"
	"github.com/corralhq/corral/internal/service"
	"github.com/corralhq/corral/internal/state"
	"github.com/corralhq/corral/internal/syncer"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `usage: corral <command> [args]

commands:
  list                 show the herd
  add <tag> <breed> <age>   add an animal
  delete <id>          remove an animal
  search <query>       fuzzy-filter the herd
  stats                show herd statistics
  notifications        list notifications
  read <id>            mark a notification read
  watch                keep notifications refreshed until interrupted
  pending              show queued offline changes
  sync                 replay queued changes now
`

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("corral %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsConfigured() {
		return fmt.Errorf("server url and token must be set (config file or CORRAL_SERVER_URL / CORRAL_SERVER_TOKEN)")
	}

	logger, err := logging.Setup(&cfg.Logging)
	if err != nil {
		logger = logging.Null()
	}
	slog.SetDefault(logger)
	logger.Info("starting corral", "version", Version)

	c, err := cache.Open(cfg.Cache.Dir, cache.Options{TTL: cfg.Cache.TTL, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	q, err := queue.Open(cfg.Cache.Dir, logger)
	if err != nil {
		return fmt.Errorf("failed to open pending queue: %w", err)
	}
	defer q.Close()

	gw := gateway.NewClient(cfg.Server.URL, cfg.Server.Token, cfg.Server.Timeout, logger)

	// Initial connectivity from a quick probe.
	probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	online := gw.Ping(probeCtx) == nil
	cancel()
	monitor := netmon.New(online, logger)

	store := state.NewStore()
	coordinator := optimistic.New(q, monitor, logger)
	engine := syncer.New(gw, q, store, c, monitor, logger)
	herd := service.NewHerdService(gw, store, c, q, coordinator, engine, monitor, logger)
	notifications := service.NewNotificationService(gw, store, c, coordinator, logger)
	stats := service.NewStatsService(gw, store, c, logger)
	search := service.NewSearchService(store, logger)

	ctx := context.Background()

	switch args[0] {
	case "list":
		records, err := herd.LoadCattle(ctx)
		if err != nil {
			return err
		}
		printCattle(records)
		return nil

	case "add":
		if len(args) < 4 {
			return fmt.Errorf("usage: corral add <tag> <breed> <age>")
		}
		age, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("age must be a number: %w", err)
		}
		record, err := herd.AddCattle(ctx, domain.Cattle{
			TagNumber: args[1],
			Breed:     args[2],
			Age:       age,
		})
		if err != nil {
			return err
		}
		if domain.IsTempID(record.ID) {
			fmt.Printf("added %s (queued for sync, %d pending)\n", record.DisplayName(), herd.PendingChanges())
		} else {
			fmt.Printf("added %s (id %s)\n", record.DisplayName(), record.ID)
		}
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: corral delete <id>")
		}
		if _, err := herd.LoadCattle(ctx); err != nil {
			return err
		}
		if err := herd.DeleteCattle(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil

	case "search":
		if len(args) < 2 {
			return fmt.Errorf("usage: corral search <query>")
		}
		if _, err := herd.LoadCattle(ctx); err != nil {
			return err
		}
		results := search.Filter(args[1])
		if len(results) == 0 {
			results = search.Rank(args[1])
		}
		printCattle(results)
		return nil

	case "stats":
		s, err := stats.LoadStats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("head: %d  avg age: %.1f  avg weight: %.1fkg  unread: %d\n",
			s.TotalHead, s.AvgAge, s.AvgWeightKg, s.UnreadNotifications)
		return nil

	case "notifications":
		records, err := notifications.LoadNotifications(ctx)
		if err != nil {
			return err
		}
		printNotifications(records)
		fmt.Printf("%d unread\n", notifications.UnreadCount())
		return nil

	case "read":
		if len(args) < 2 {
			return fmt.Errorf("usage: corral read <id>")
		}
		if _, err := notifications.LoadNotifications(ctx); err != nil {
			return err
		}
		if err := notifications.MarkRead(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("marked read")
		return nil

	case "watch":
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		herd.Store().Subscribe(func(snap state.Snapshot) {
			unread := 0
			for _, n := range snap.Notifications {
				if !n.Read {
					unread++
				}
			}
			fmt.Printf("%d notification(s), %d unread\n", len(snap.Notifications), unread)
		})
		monitor.StartProbing(watchCtx, gw.Ping, 30*time.Second)
		notifications.StartAutoRefresh(watchCtx, cfg.Notifications.RefreshInterval)
		defer notifications.StopAutoRefresh()
		<-watchCtx.Done()
		return nil

	case "pending":
		fmt.Printf("%d pending change(s)\n", herd.PendingChanges())
		return nil

	case "sync":
		monitor.SetOnline(gw.Ping(ctx) == nil)
		if err := herd.SyncPendingChanges(ctx); err != nil {
			return err
		}
		fmt.Printf("sync complete, %d pending\n", herd.PendingChanges())
		return nil

	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printNotifications(records []domain.Notification) {
	if len(records) == 0 {
		fmt.Println("no notifications")
		return
	}
	for _, n := range records {
		marker := "*"
		if n.Read {
			marker = " "
		}
		fmt.Printf("%s %-12s %s: %s\n", marker, n.ID, n.Title, n.Message)
	}
}

func printCattle(records []domain.Cattle) {
	if len(records) == 0 {
		fmt.Println("no records")
		return
	}
	for _, r := range records {
		marker := ""
		if domain.IsTempID(r.ID) {
			marker = " (unsynced)"
		}
		fmt.Printf("%-12s %-16s age %-3d %s%s\n", r.ID, r.DisplayName(), r.Age, r.Status, marker)
	}
}
