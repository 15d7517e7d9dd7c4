// Command worker runs a single orchestrator worker process: it accepts
// execute requests, runs the command, and reports the result back to the
// master's callback URL.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"github.com/airflow-mini/orchestrator/internal/health"
	wkr "github.com/airflow-mini/orchestrator/internal/worker"
)

func main() {
	host := flag.String("host", "127.0.0.1", "host to bind to")
	port := flag.Int("port", 8001, "port to run the worker on")
	flag.Parse()

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%d", *port)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := wkr.NewServer(workerID, wkr.NewRunner())
	srv.RegisterRoutes(router)

	stopHeartbeat := startHeartbeatLoop(workerID, os.Getenv("NATS_URL"))
	defer stopHeartbeat()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	log.Printf("%s listening on %s", workerID, addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

// startHeartbeatLoop publishes a liveness ping every few seconds if
// natsURL is set. It returns a stop function; when natsURL is empty the
// stop function is a no-op and nothing is published.
func startHeartbeatLoop(workerID, natsURL string) func() {
	if natsURL == "" {
		return func() {}
	}

	conn, err := nats.Connect(natsURL)
	if err != nil {
		log.Printf("warning: failed to connect to nats at %s: %v", natsURL, err)
		return func() {}
	}

	publisher := health.NewHeartbeatPublisher(conn)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := publisher.Publish(workerID); err != nil {
					log.Printf("%s: failed to publish heartbeat: %v", workerID, err)
				}
			}
		}
	}()

	return func() {
		close(done)
		conn.Close()
	}
}
