package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/config"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/eventbus"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/knowledge"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/safety"
)

func main() {
	if err := loadEnvFile(); err != nil {
		log.Printf("Note: could not load .env file: %v (continuing without it)", err)
	}

	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		port       = flag.Int("port", 0, "Port to run the server on (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	store := knowledge.NewStore(rdb, cfg.Redis.Key, knowledge.Config{
		MatchThreshold: cfg.Knowledge.MatchThreshold,
		RecoveryFloor:  cfg.Knowledge.RecoveryFloor,
		BehaviorFloor:  cfg.Knowledge.BehaviorFloor,
	})
	base, err := store.Load(ctx)
	if err != nil {
		log.Printf("Warning: could not load knowledge base, starting empty: %v", err)
		base = knowledge.NewBase(knowledge.DefaultConfig())
	}

	registry := planner.DomainRegistry()
	htn := planner.NewHTNPlanner(registry)
	replanner := planner.NewReplanner(htn, base)
	validator := safety.NewValidator(safety.Config{
		MaxPlanLength:    cfg.Safety.MaxPlanLength,
		ForbiddenActions: cfg.Safety.ForbiddenActions,
		CriticalBattery:  cfg.Safety.CriticalBattery,
		LowBattery:       cfg.Safety.LowBattery,
		Cost:             safety.FlatCost(cfg.Safety.ActionCost),
	})

	var bus *eventbus.NATSBus
	if cfg.NATS.Enabled {
		bus, err = eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
		if err != nil {
			log.Printf("Warning: NATS unavailable, events disabled: %v", err)
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	// Periodic checkpoint so restarts keep the learned experience.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Knowledge.CheckpointCron, func() {
		if err := store.Save(context.Background(), base); err != nil {
			log.Printf("[CHECKPOINT] knowledge save failed: %v", err)
		} else {
			log.Printf("[CHECKPOINT] knowledge base saved")
		}
	}); err != nil {
		log.Fatalf("Invalid checkpoint schedule %q: %v", cfg.Knowledge.CheckpointCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := newAPIServer(htn, replanner, validator, base, store, bus)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Decision kernel API listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadEnvFile loads .env from the working directory or next to the binary.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	path := filepath.Join(filepath.Dir(exe), ".env")
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return godotenv.Load(path)
}
