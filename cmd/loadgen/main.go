// Command loadgen fires concurrent reservations at the Redis inventory
// ledger to demonstrate that the last units cannot be oversold.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/remate/marketplace/internal/adapter/storage"
)

const (
	productID     = "loadgen-producto"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	ledger := storage.NewRedisAdapter(rdb)
	if err := ledger.SetStock(ctx, productID, initialStock); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	var (
		wg       sync.WaitGroup
		reserved int64
		soldOut  int64
		failed   int64
	)

	start := time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Reserve(ctx, productID, 1)
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
			case ok:
				atomic.AddInt64(&reserved, 1)
			default:
				atomic.AddInt64(&soldOut, 1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	remaining, _, err := ledger.Available(ctx, productID)
	if err != nil {
		log.Fatalf("failed to read stock: %v", err)
	}

	fmt.Printf("requests:  %d in %v\n", totalRequests, elapsed)
	fmt.Printf("reserved:  %d\n", reserved)
	fmt.Printf("sold out:  %d\n", soldOut)
	fmt.Printf("errors:    %d\n", failed)
	fmt.Printf("remaining: %d\n", remaining)

	if reserved != initialStock || remaining != 0 {
		log.Fatalf("OVERSELL DETECTED: reserved=%d remaining=%d (want %d and 0)", reserved, remaining, initialStock)
	}
	fmt.Println("no oversell: every unit sold exactly once")
}
