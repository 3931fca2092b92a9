package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/medical-appointment-scheduling/internal/availability"
	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
	"github.com/hackgods/medical-appointment-scheduling/internal/registry"
)

const (
	doctorCount     = 60
	patientCount    = 3000
	schedulesPerDoc = 3
	seedConcurrency = 8
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var (
	birthFrom = time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
	birthTo   = time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
)

var weekdays = []availability.Weekday{
	availability.Monday,
	availability.Tuesday,
	availability.Wednesday,
	availability.Thursday,
	availability.Friday,
	availability.Saturday,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "seed").WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "seed")

	if err := cfg.RequirePostgres(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: seedConcurrency},
		db.SchemaRegistry, db.SchemaScheduling, db.SchemaNotification)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	// the seed itself is noisy enough
	quiet := logging.New(cfg.Env, "warn", "seed")

	repo := registry.NewPgRepository(pool)
	registrySvc := registry.NewService(repo, repo, quiet)
	availabilitySvc := availability.NewService(availability.NewPgRepository(pool), registrySvc, nil, nil, quiet)

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), registrySvc, log)
	if err != nil {
		log.WithError(err).Fatal("seed doctors")
	}
	if err := seedSchedules(context.Background(), availabilitySvc, doctors, log); err != nil {
		log.WithError(err).Fatal("seed schedules")
	}
	if err := seedPatients(context.Background(), registrySvc, log); err != nil {
		log.WithError(err).Fatal("seed patients")
	}

	log.Info("seed complete")
}

func seedDoctors(ctx context.Context, svc *registry.Service, log logrus.FieldLogger) ([]uuid.UUID, error) {
	log.WithField("count", doctorCount).Info("seeding doctors")

	ids := make([]uuid.UUID, 0, doctorCount)
	for i := 0; i < doctorCount; i++ {
		d, err := svc.RegisterDoctor(ctx, registry.NewDoctor{
			Name:      gofakeit.FirstName(),
			Surname:   gofakeit.LastName(),
			Specialty: gofakeit.RandomString(specialties),
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}

	log.Info("doctors seeded")
	return ids, nil
}

func seedSchedules(ctx context.Context, svc *availability.Service, doctors []uuid.UUID, log logrus.FieldLogger) error {
	log.WithField("per_doctor", schedulesPerDoc).Info("seeding schedules")

	slots := 0
	for _, doctorID := range doctors {
		days := make([]availability.Weekday, len(weekdays))
		copy(days, weekdays)
		gofakeit.ShuffleAnySlice(days)

		for _, day := range days[:schedulesPerDoc] {
			start := availability.Clock(gofakeit.Number(7, 10) * 60)
			end := start + availability.Clock(gofakeit.Number(3, 6)*60)

			_, generated, err := svc.ConfigureSchedule(ctx, availability.ScheduleConfig{
				DoctorID:        doctorID,
				Weekday:         day,
				StartTime:       start,
				EndTime:         end,
				DurationMinutes: []int{15, 20, 30}[gofakeit.Number(0, 2)],
			})
			if err != nil {
				return err
			}
			slots += len(generated)
		}
	}

	log.WithField("slots", slots).Info("schedules seeded")
	return nil
}

func seedPatients(ctx context.Context, svc *registry.Service, log logrus.FieldLogger) error {
	log.WithField("count", patientCount).Info("seeding patients")

	// generated up front: the fake data source is not shared across goroutines
	patients := make([]registry.NewPatient, patientCount)
	for i := range patients {
		patients[i] = registry.NewPatient{
			Identification:     gofakeit.Numerify("##########"),
			IdentificationType: registry.IdentificationCedula,
			Name:               gofakeit.Name(),
			Gender:             fakeGender(),
			BirthDate:          gofakeit.DateRange(birthFrom, birthTo).Truncate(24 * time.Hour),
			Email:              gofakeit.Email(),
			Phone:              gofakeit.Phone(),
			Address: registry.Address{
				Street: gofakeit.Street(),
				Number: gofakeit.StreetNumber(),
				City:   gofakeit.City(),
			},
		}
	}

	var created, duplicates atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	for _, p := range patients {
		g.Go(func() error {
			_, err := svc.RegisterPatient(ctx, p)
			switch {
			case errors.Is(err, registry.ErrDuplicatePatient):
				duplicates.Add(1)
				return nil
			case err != nil:
				return err
			}
			if n := created.Add(1); n%500 == 0 {
				log.Infof("patients seeded: %d/%d", n, patientCount)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"created":    created.Load(),
		"duplicates": duplicates.Load(),
	}).Info("patients seeded")
	return nil
}

func fakeGender() registry.Gender {
	if gofakeit.Bool() {
		return registry.GenderFemale
	}
	return registry.GenderMale
}
