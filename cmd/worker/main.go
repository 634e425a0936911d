package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/session"
	"rollcall/internal/store"
)

// recentFeedSize bounds the per-session recent check-in feed in Redis.
const recentFeedSize = 50

// Worker consumes check-in messages and keeps the live per-session
// counters and recent-check-in feeds in Redis that the lecturer
// dashboard polls. The attendance records themselves are already
// durable by the time a message arrives; everything here is derived
// state and safe to rebuild.
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

	if cfg.StoreBackend == "memory" {
		log.Fatal("worker needs the postgres store backend; the memory backend is process-local")
	}

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
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:checkins")
	}

	records := attendance.NewRepository(db.Client)
	sessions := session.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for check-ins...")
	for msg := range messages {
		if msg.Type != "checkin" {
			continue
		}

		id := string(msg.Body)
		rec, err := records.Get(ctx, id)
		if err != nil {
			log.Printf("fetch record %s failed: %v", id, err)
			continue
		}
		sess, err := sessions.FindByID(ctx, rec.SessionRef)
		if err != nil {
			log.Printf("fetch session %s failed: %v", rec.SessionRef, err)
			continue
		}

		if err := redisClient.Client.Incr(ctx, store.CountKey(sess.PublicID)).Err(); err != nil {
			log.Printf("count update for %s failed: %v", sess.PublicID, err)
			continue
		}

		entry, _ := json.Marshal(map[string]any{
			"studentId":   rec.StudentID,
			"studentName": rec.StudentName,
			"checkinTime": rec.CheckinTime,
		})
		feedKey := "rollcall:recent:" + sess.PublicID
		if err := redisClient.Client.LPush(ctx, feedKey, entry).Err(); err != nil {
			log.Printf("feed update for %s failed: %v", sess.PublicID, err)
			continue
		}
		_ = redisClient.Client.LTrim(ctx, feedKey, 0, recentFeedSize-1).Err()

		log.Printf("processed check-in %s (%s in %s)", rec.ID, rec.StudentID, sess.PublicID)
	}

	log.Println("worker stopped")
}
