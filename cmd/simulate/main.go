package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-scheduling/internal/config"
	"github.com/hackgods/healthcare-scheduling/internal/db"
	"github.com/hackgods/healthcare-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Rounds       int // contention rounds: every worker books the same doctor and time
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	PatientLimit int
	DoctorLimit  int
	PostgresDSN  string
}

type DataPool struct {
	Patients     []int64
	Doctors      []int64
	mu           sync.RWMutex
	appointments []int64 // Thread-safe list of created appointment IDs
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Metrics struct {
	Contention OperationMetrics
	Booking    OperationMetrics
	Cancel     OperationMetrics
	Listing    OperationMetrics
}

type Simulator struct {
	config     SimConfig
	pool       *DataPool
	pg         *pgxpool.Pool
	client     *http.Client
	log        zerolog.Logger
	metrics    Metrics
	violations int64
}

func main() {
	cfg, baseCfg := loadConfig()
	logger := logging.New("simulate", baseCfg.Env, baseCfg.LogLevel)

	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Int("rounds", cfg.Rounds).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("patients", len(dataPool.Patients)).Int("doctors", len(dataPool.Doctors)).Msg("data loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		pg:     pgPool,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}

	sim.RunContention()
	sim.RunMixed()
	sim.PrintReport()

	if sim.violations > 0 {
		os.Exit(1)
	}
}

func loadConfig() (SimConfig, config.Config) {
	baseCfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load base config")
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 20),
		Rounds:       getInt("SIM_ROUNDS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 4000),
		DoctorLimit:  getInt("SIM_DOCTOR_LIMIT", 50),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg, baseCfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("SIM_DURATION must be >= 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	var err error
	dataPool.Patients, err = loadIDs(ctx, pool, `SELECT id FROM patients ORDER BY random() LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	dataPool.Doctors, err = loadIDs(ctx, pool, `SELECT id FROM doctors ORDER BY random() LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run seed first")
	}
	if len(dataPool.Doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run seed first")
	}

	return dataPool, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]int64, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RunContention sends every worker at the same doctor and instant at once and
// then checks the ledger holds exactly one scheduled appointment for it.
func (s *Simulator) RunContention() {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for round := 0; round < s.config.Rounds; round++ {
		doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
		at := time.Now().UTC().Add(time.Duration(30+rng.Intn(3650*24)) * time.Hour).Truncate(time.Minute)

		var (
			wg    sync.WaitGroup
			wins  int64
			start = make(chan struct{})
		)
		for i := 0; i < s.config.Workers; i++ {
			wg.Add(1)
			patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
			go func() {
				defer wg.Done()
				<-start
				if s.book(context.Background(), &s.metrics.Contention, patientID, doctorID, at) {
					atomic.AddInt64(&wins, 1)
				}
			}()
		}
		close(start)
		wg.Wait()

		var scheduled int
		err := s.pg.QueryRow(context.Background(), `
			SELECT count(*) FROM appointments
			WHERE doctor_id = $1 AND appointment_time = $2 AND status = 'SCHEDULED'
		`, doctorID, at).Scan(&scheduled)
		if err != nil {
			s.log.Error().Err(err).Msg("count scheduled appointments")
			continue
		}

		logEv := s.log.Info()
		if scheduled > 1 || wins > 1 {
			atomic.AddInt64(&s.violations, 1)
			logEv = s.log.Error()
		}
		logEv.Int("round", round).
			Int64("doctor_id", doctorID).
			Time("appointment_time", at).
			Int64("accepted", wins).
			Int("scheduled", scheduled).
			Msg("contention round")
	}
}

func (s *Simulator) RunMixed() {
	if s.config.Duration == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting mixed load")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("mixed load complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
			patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
			// a small set of half hour slots so collisions actually happen
			at := time.Now().UTC().Truncate(24*time.Hour).Add(48*time.Hour + time.Duration(rng.Intn(16))*30*time.Minute)
			s.book(ctx, &s.metrics.Booking, patientID, doctorID, at)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.cancel(ctx, rng)
		default:
			s.list(ctx, rng)
		}
	}
}

func (s *Simulator) book(ctx context.Context, om *OperationMetrics, patientID, doctorID int64, at time.Time) bool {
	body, _ := json.Marshal(map[string]any{
		"patientId":       patientID,
		"doctorId":        doctorID,
		"appointmentTime": at.Format(time.RFC3339),
	})

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/api/appointments/book", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		om.Record(latency, false, false)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var appt struct {
			ID int64 `json:"id"`
		}
		if json.NewDecoder(resp.Body).Decode(&appt) == nil && appt.ID > 0 {
			s.pool.AddAppointment(appt.ID)
		}
		om.Record(latency, true, false)
		return true
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	om.Record(latency, false, apiErr.Code == "conflict")
	return false
}

func (s *Simulator) cancel(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]int64{"appointmentId": apptID})

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/api/appointments/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		// already cancelled by another worker
		conflict = resp.StatusCode == http.StatusBadRequest
	}

	s.metrics.Cancel.Record(latency, success, conflict)
}

func (s *Simulator) list(ctx context.Context, rng *rand.Rand) {
	var path string
	if rng.Intn(2) == 0 {
		path = fmt.Sprintf("/api/appointments/patient/%d", s.pool.Patients[rng.Intn(len(s.pool.Patients))])
	} else {
		path = fmt.Sprintf("/api/doctors/%d/availability", s.pool.Doctors[rng.Intn(len(s.pool.Doctors))])
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Listing.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Workers: %d  Contention rounds: %d  Mixed duration: %s\n\n", s.config.Workers, s.config.Rounds, s.config.Duration)

	printOperationReport("Contention booking", &s.metrics.Contention)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Listing", &s.metrics.Listing)

	if s.violations > 0 {
		fmt.Printf("DOUBLE BOOKINGS DETECTED in %d round(s)\n", s.violations)
	} else {
		fmt.Println("No double bookings detected")
	}
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
