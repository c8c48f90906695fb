package main

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	kafkaBroker = "localhost:9092"
	topic       = "water-quality-observations"
)

// Observation mirrors the payload streamgauge expects on the wire.
type Observation struct {
	StationID string    `json:"station_id"`
	Parameter string    `json:"parameter"`
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
}

var stations = []string{"BB-101", "BB-102", "PC-201", "PC-204"}

func main() {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaBroker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Fatalf("Error closing kafka writer: %v", err)
		}
	}()
	log.Printf("Starting sample producer for topic: %s on broker: %s", topic, kafkaBroker)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		log.Println("Shutdown signal received, stopping producer...")
		cancel()
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ticker.C:
			obs := generateObservation(rng)
			payload, err := json.Marshal(obs)
			if err != nil {
				log.Printf("Error marshalling observation: %v", err)
				continue
			}

			err = writer.WriteMessages(ctx, kafka.Message{Value: payload})
			if err != nil {
				if ctx.Err() != nil {
					log.Println("Context cancelled, exiting message loop.")
					return
				}
				log.Printf("Error writing message: %v", err)
			} else {
				log.Printf("Produced observation: %s", string(payload))
			}

		case <-ctx.Done():
			log.Println("Producer loop stopped.")
			return
		}
	}
}

// generateObservation emits a lognormal enterococci count for a random
// station, with occasional contamination spikes and rare censored zeros.
func generateObservation(rng *rand.Rand) Observation {
	station := stations[rng.Intn(len(stations))]

	// Lognormal around ~20 MPN/100mL, heavy right tail.
	count := math.Exp(rng.NormFloat64()*1.2 + 3.0)
	if rng.Float64() < 0.03 { // storm runoff spike
		count *= 20
	}
	if rng.Float64() < 0.02 { // below detection limit
		count = 0
	}

	return Observation{
		StationID: station,
		Parameter: "enterococci",
		Time:      time.Now(),
		Value:     math.Round(count),
	}
}
