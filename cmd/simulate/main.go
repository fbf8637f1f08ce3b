package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carewell/clinic-scheduling/internal/db"
)

// Load driver for the booking API. Many workers fight over the same few
// doctors' slots so the conflict path gets real exercise: every slot must be
// won by exactly one booking, everyone else sees 409.
type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	DoctorLimit  int
	PatientLimit int
}

type Counters struct {
	booked    atomic.Int64
	conflicts atomic.Int64
	cancelled atomic.Int64
	errors    atomic.Int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL:   envOr("API_BASE_URL", "http://127.0.0.1:8080"),
		Duration:     durationOr("SIM_DURATION", 30*time.Second),
		Workers:      intOr("SIM_WORKERS", 16),
		DoctorLimit:  intOr("SIM_DOCTORS", 5),
		PatientLimit: intOr("SIM_PATIENTS", 200),
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required to load doctor/patient IDs")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	doctors, err := loadIDs(context.Background(), pool, "doctors", cfg.DoctorLimit)
	if err != nil {
		log.Fatalf("load doctors: %v", err)
	}
	patients, err := loadIDs(context.Background(), pool, "patients", cfg.PatientLimit)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	pool.Close()

	if len(doctors) == 0 || len(patients) == 0 {
		log.Fatal("no doctors or patients found, run cmd/seed first")
	}

	log.Printf("simulating: %d workers, %d doctors, %d patients, %s",
		cfg.Workers, len(doctors), len(patients), cfg.Duration)

	runCtx, stop := context.WithTimeout(context.Background(), cfg.Duration)
	defer stop()

	var counters Counters
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker(runCtx, cfg, rand.New(rand.NewSource(seed)), doctors, patients, &counters)
		}(time.Now().UnixNano() + int64(i))
	}

	wg.Wait()

	log.Printf("done: booked=%d conflicts=%d cancelled=%d errors=%d",
		counters.booked.Load(), counters.conflicts.Load(),
		counters.cancelled.Load(), counters.errors.Load())
}

func worker(ctx context.Context, cfg SimConfig, rng *rand.Rand, doctors, patients []uuid.UUID, c *Counters) {
	client := &http.Client{Timeout: 5 * time.Second}
	var mine []uuid.UUID

	for ctx.Err() == nil {
		doctor := doctors[rng.Intn(len(doctors))]
		patient := patients[rng.Intn(len(patients))]

		day := time.Now().UTC().AddDate(0, 0, 1+rng.Intn(5)).Format("2006-01-02")

		slots, err := fetchAvailability(ctx, client, cfg.APIBaseURL, doctor, day)
		if err != nil || len(slots) == 0 {
			continue
		}

		slot := slots[rng.Intn(len(slots))]
		apptID, status, err := book(ctx, client, cfg.APIBaseURL, patient, doctor, slot)
		switch {
		case err != nil:
			c.errors.Add(1)
		case status == http.StatusCreated:
			c.booked.Add(1)
			mine = append(mine, apptID)
		case status == http.StatusConflict:
			c.conflicts.Add(1)
		default:
			c.errors.Add(1)
		}

		// Occasionally cancel one of our own bookings to recycle slots.
		if len(mine) > 0 && rng.Float64() < 0.2 {
			idx := rng.Intn(len(mine))
			if cancelBooking(ctx, client, cfg.APIBaseURL, mine[idx]) {
				c.cancelled.Add(1)
			}
			mine = append(mine[:idx], mine[idx+1:]...)
		}
	}
}

func fetchAvailability(ctx context.Context, client *http.Client, base string, doctor uuid.UUID, day string) ([]time.Time, error) {
	url := fmt.Sprintf("%s/doctors/%s/availability?date=%s", base, doctor, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability: status %d", resp.StatusCode)
	}

	var body struct {
		Slots []time.Time `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Slots, nil
}

func book(ctx context.Context, client *http.Client, base string, patient, doctor uuid.UUID, slot time.Time) (uuid.UUID, int, error) {
	payload, _ := json.Marshal(map[string]string{
		"patient_id": patient.String(),
		"doctor_id":  doctor.String(),
		"slot_time":  slot.Format(time.RFC3339),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/appointments", bytes.NewReader(payload))
	if err != nil {
		return uuid.Nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return uuid.Nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return uuid.Nil, resp.StatusCode, nil
	}

	var body struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return uuid.Nil, resp.StatusCode, err
	}
	return body.ID, resp.StatusCode, nil
}

func cancelBooking(ctx context.Context, client *http.Client, base string, id uuid.UUID) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/appointments/%s/cancel", base, id), nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, table string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s LIMIT %d", table, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
