package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hosteld/internal/attendance"
	"hosteld/internal/config"
	"hosteld/internal/hostel"
	"hosteld/internal/queue"
	"hosteld/internal/store"
)

// Worker consumes queue messages: summary rollups after each recorded punch
// and notification rows after leave decisions. Both are best effort — a
// failed message is logged and dropped, never retried into the intake path.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "hosteld:events")
	}

	attRepo := attendance.NewRepository(db.Client)
	hostelRepo := hostel.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		switch msg.Type {
		case queue.TypeSummary:
			var m attendance.SummaryMsg
			if err := json.Unmarshal(msg.Body, &m); err != nil {
				log.Printf("bad summary message: %v", err)
				continue
			}
			if err := attRepo.RecomputeSummary(ctx, m.PersonID, m.Day); err != nil {
				log.Printf("summary recompute failed for %s/%s: %v", m.PersonID, m.Day, err)
				continue
			}
			log.Printf("summary recomputed for %s/%s", m.PersonID, m.Day)

		case queue.TypeNotify:
			var m hostel.NotifyMsg
			if err := json.Unmarshal(msg.Body, &m); err != nil {
				log.Printf("bad notify message: %v", err)
				continue
			}
			if _, err := hostelRepo.InsertNotification(ctx, hostel.Notification{
				PersonID: m.PersonID,
				Title:    m.Title,
				Body:     m.Body,
			}); err != nil {
				log.Printf("notification insert failed for %s: %v", m.PersonID, err)
				continue
			}
			log.Printf("notification delivered to %s: %s", m.PersonID, m.Title)

		default:
			log.Printf("unknown message type %q, dropping", msg.Type)
		}
	}

	log.Println("worker stopped")
}
