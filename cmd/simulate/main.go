package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
)

type SimConfig struct {
	SchedulingURL string
	RegistryURL   string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	CancelRatio   float64
	ReadRatio     float64
	Days          int
}

// bookable is a slot on a concrete date, as offered by the availability endpoint.
type bookable struct {
	SlotID   uuid.UUID
	DoctorID uuid.UUID
	DateTime string
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []bookable

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    atomic.Int64
	Success  atomic.Int64
	Conflict atomic.Int64
	Error    atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	om.Total.Add(1)
	switch {
	case status >= 200 && status < 300:
		om.Success.Add(1)
	case status == http.StatusConflict:
		om.Conflict.Add(1)
	default:
		om.Error.Add(1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

// Percentile returns the latency at p (0-100).
func (om *OperationMetrics) Percentile(p int) time.Duration {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), om.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type Metrics struct {
	Booking       OperationMetrics
	Cancel        OperationMetrics
	ReadByID      OperationMetrics
	ListByPatient OperationMetrics
	ListByDate    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     logrus.FieldLogger
}

func main() {
	base, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "simulate").WithError(err).Fatal("config load error")
	}
	log := logging.New(base.Env, base.LogLevel, "simulate")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.WithFields(logrus.Fields{
		"duration": cfg.Duration,
		"workers":  cfg.Workers,
		"booking":  cfg.BookingRatio,
		"cancel":   cfg.CancelRatio,
		"read":     cfg.ReadRatio,
	}).Info("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sim.pool, err = sim.loadDataPool(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("load data pool")
	}
	log.WithFields(logrus.Fields{
		"patients": len(sim.pool.Patients),
		"slots":    len(sim.pool.Slots),
	}).Info("data pool loaded")

	if err := sim.Run(); err != nil {
		log.WithError(err).Fatal("simulation failed")
	}
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		SchedulingURL: strings.TrimRight(getEnv("SIM_SCHEDULING_URL", "http://localhost:8080"), "/"),
		RegistryURL:   strings.TrimRight(getEnv("SIM_REGISTRY_URL", "http://localhost:8081"), "/"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.5),
		CancelRatio:   getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.4),
		Days:          getInt("SIM_DAYS", 7),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be > 0")
	}
	return nil
}

// loadDataPool reads patients, doctors and the coming days' free slots from
// the registry API.
func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	pool := &DataPool{}

	var patients []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := s.getJSON(ctx, s.config.RegistryURL+"/patients?limit=100", &patients); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for _, p := range patients {
		pool.Patients = append(pool.Patients, p.ID)
	}

	var doctors []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := s.getJSON(ctx, s.config.RegistryURL+"/doctors", &doctors); err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, d := range doctors {
		for day := 1; day <= s.config.Days; day++ {
			date := today.AddDate(0, 0, day).Format("2006-01-02")

			var slots []struct {
				ID        uuid.UUID `json:"id"`
				StartTime string    `json:"startTime"`
				State     string    `json:"state"`
			}
			q := url.Values{"doctorId": {d.ID.String()}, "date": {date}}
			if err := s.getJSON(ctx, s.config.RegistryURL+"/availability?"+q.Encode(), &slots); err != nil {
				return nil, fmt.Errorf("load availability: %w", err)
			}
			for _, slot := range slots {
				if slot.State != "AVAILABLE" {
					continue
				}
				pool.Slots = append(pool.Slots, bookable{
					SlotID:   slot.ID,
					DoctorID: d.ID,
					DateTime: date + " " + slot.StartTime,
				})
			}
		}
	}

	if len(pool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(pool.Slots) == 0 {
		return nil, fmt.Errorf("no slots loaded")
	}
	return pool, nil
}

func (s *Simulator) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Infof("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.config.Workers; i++ {
		g.Go(func() error {
			s.worker(ctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.log.Info("simulation complete")
	return nil
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doListByPatient(ctx, rng)
			case 2:
				s.doListByDate(ctx, rng)
			}
		}
	}
}

// doBooking picks from a shared slot pool, so concurrent workers regularly
// race for the same slot and the loser sees a 409.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	body := map[string]string{
		"patientId": patientID.String(),
		"doctorId":  slot.DoctorID.String(),
		"slotId":    slot.SlotID.String(),
		"dateTime":  slot.DateTime,
	}

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	start := time.Now()
	status := s.send(ctx, http.MethodPost, s.config.SchedulingURL+"/appointments", body, &created)
	s.record(ctx, &s.metrics.Booking, time.Since(start), status)

	if status == http.StatusCreated && created.ID != uuid.Nil {
		s.pool.AddAppointment(created.ID)
	}
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status := s.send(ctx, http.MethodPatch,
		fmt.Sprintf("%s/appointments/%s/cancel", s.config.SchedulingURL, apptID),
		map[string]string{"reason": "simulated cancellation"}, nil)
	s.record(ctx, &s.metrics.Cancel, time.Since(start), status)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status := s.send(ctx, http.MethodGet, fmt.Sprintf("%s/appointments/%s", s.config.SchedulingURL, apptID), nil, nil)
	s.record(ctx, &s.metrics.ReadByID, time.Since(start), status)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status := s.send(ctx, http.MethodGet, fmt.Sprintf("%s/appointments?patientId=%s", s.config.SchedulingURL, patientID), nil, nil)
	s.record(ctx, &s.metrics.ListByPatient, time.Since(start), status)
}

func (s *Simulator) doListByDate(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	date, _, _ := strings.Cut(slot.DateTime, " ")

	start := time.Now()
	status := s.send(ctx, http.MethodGet, fmt.Sprintf("%s/appointments?date=%s", s.config.SchedulingURL, date), nil, nil)
	s.record(ctx, &s.metrics.ListByDate, time.Since(start), status)
}

// record drops requests cut short by the end of the run.
func (s *Simulator) record(ctx context.Context, om *OperationMetrics, latency time.Duration, status int) {
	if status == 0 && ctx.Err() != nil {
		return
	}
	om.Record(latency, status)
}

// send returns the response status, or 0 when the request failed.
func (s *Simulator) send(ctx context.Context, method, target string, in, out any) int {
	var body bytes.Buffer
	if in != nil {
		_ = json.NewEncoder(&body).Encode(in)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, &body)
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func (s *Simulator) getJSON(ctx context.Context, target string, out any) error {
	status := s.send(ctx, http.MethodGet, target, nil, out)
	if status != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", target, status)
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Slot pool: %d\n", len(s.pool.Slots))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
	printOperationReport("List by Date", &s.metrics.ListByDate)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := om.Total.Load()
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", om.Success.Load(), pct(om.Success.Load()))
	if c := om.Conflict.Load(); c > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", c, pct(c))
	}
	if e := om.Error.Load(); e > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", e, pct(e))
	}
	fmt.Printf("  Latency: p50=%s p95=%s p99=%s max=%s\n",
		om.Percentile(50).Round(time.Millisecond),
		om.Percentile(95).Round(time.Millisecond),
		om.Percentile(99).Round(time.Millisecond),
		om.Percentile(100).Round(time.Millisecond))
	fmt.Println()
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
