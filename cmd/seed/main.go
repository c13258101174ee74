package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/healthcare-scheduling/internal/apperr"
	"github.com/hackgods/healthcare-scheduling/internal/availability"
	"github.com/hackgods/healthcare-scheduling/internal/config"
	"github.com/hackgods/healthcare-scheduling/internal/db"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
	"github.com/hackgods/healthcare-scheduling/internal/logging"
)

var specializations = []string{
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

type seedOptions struct {
	doctors        int
	patients       int
	slotsPerDoctor int
	days           int
	seed           int64
}

func main() {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with fake doctors, patients and availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.doctors, "doctors", 100, "number of doctors")
	cmd.Flags().IntVar(&opts.patients, "patients", 2000, "number of patients")
	cmd.Flags().IntVar(&opts.slotsPerDoctor, "slots-per-doctor", 16, "availability slots per doctor")
	cmd.Flags().IntVar(&opts.days, "days", 14, "spread slots over this many days from tomorrow")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed, 0 picks one from the clock")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	logger := logging.New("seed", cfg.Env, cfg.LogLevel)

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancel()
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(uint64(opts.seed))

	identityRepo := identity.NewPgRepository(pool)
	slots := availability.NewService(availability.NewPgRepository(pool), identityRepo, zerolog.Nop())
	directory := identity.NewDirectory(identityRepo, slots, zerolog.Nop())

	doctorIDs, err := seedDoctors(ctx, logger, faker, directory, opts.doctors)
	if err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	if err := seedPatients(ctx, logger, faker, directory, opts.patients); err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	if err := seedSlots(ctx, logger, faker, slots, doctorIDs, opts); err != nil {
		return fmt.Errorf("seed slots: %w", err)
	}

	logger.Info().Msg("seed complete")
	return nil
}

func seedDoctors(ctx context.Context, logger zerolog.Logger, faker *gofakeit.Faker, dir *identity.Directory, count int) ([]int64, error) {
	logger.Info().Int("count", count).Msg("seeding doctors")

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		doc := &identity.Doctor{
			Name:           "Dr. " + faker.Name(),
			Specialization: specializations[faker.Number(0, len(specializations)-1)],
			Email:          fmt.Sprintf("dr.%s.%d@clinic.example", faker.Username(), i),
			Phone:          faker.Phone(),
		}
		if err := dir.RegisterDoctor(ctx, doc); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				continue
			}
			return nil, err
		}
		ids = append(ids, doc.ID)
	}

	logger.Info().Int("created", len(ids)).Msg("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, logger zerolog.Logger, faker *gofakeit.Faker, dir *identity.Directory, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	created := 0
	for i := 0; i < count; i++ {
		dob := faker.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC))
		p := &identity.Patient{
			Name:  faker.Name(),
			Email: fmt.Sprintf("%s.%d@mail.example", faker.Username(), i),
			Phone: faker.Phone(),
			DOB:   &dob,
		}
		if err := dir.RegisterPatient(ctx, p); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				continue
			}
			return err
		}
		created++

		if created%500 == 0 {
			logger.Info().Int("seeded", created).Int("total", count).Msg("patients progress")
		}
	}

	logger.Info().Int("created", created).Msg("patients seeded")
	return nil
}

// seedSlots gives each doctor half hour slots inside working hours, starting
// tomorrow.
func seedSlots(ctx context.Context, logger zerolog.Logger, faker *gofakeit.Faker, slots *availability.Service, doctorIDs []int64, opts seedOptions) error {
	if opts.days <= 0 {
		opts.days = 1
	}
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	created := 0
	for _, doctorID := range doctorIDs {
		for i := 0; i < opts.slotsPerDoctor; i++ {
			day := faker.Number(0, opts.days-1)
			halfHour := faker.Number(18, 33) // 09:00 to 16:30
			at := tomorrow.Add(time.Duration(day)*24*time.Hour + time.Duration(halfHour)*30*time.Minute)

			if _, err := slots.AddAvailableSlot(ctx, doctorID, at); err != nil {
				if errors.Is(err, apperr.ErrConflict) {
					continue
				}
				return err
			}
			created++
		}
	}

	logger.Info().Int("created", created).Msg("slots seeded")
	return nil
}
