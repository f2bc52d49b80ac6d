package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
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
	durations := []int{15, 20, 30, 45, 60}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specialties[rand.Intn(len(specialties))]

		_, err := pool.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, slot_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, "Dr. "+gofakeit.Name(), specialty, durations[rand.Intn(len(durations))])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	for i := 0; i < count; i++ {
		email := gofakeit.Email()
		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), gofakeit.Name(), email)
		if err != nil {
			return err
		}
	}

	return nil
}

// seedAvailability gives each doctor a plausible week: morning and afternoon
// windows on three to five weekdays.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d doctors", len(doctorIDs))

	for _, doctorID := range doctorIDs {
		workdays := rand.Perm(5)[:3+rand.Intn(3)] // weekday indexes 0..4 => Mon..Fri
		for _, wd := range workdays {
			day := wd + 1 // 1 = Monday

			morningStart := 8*60 + 30*rand.Intn(2)
			if err := insertWindow(ctx, pool, doctorID, day, morningStart, 12*60); err != nil {
				return err
			}

			if rand.Intn(2) == 0 {
				continue // morning-only day
			}
			if err := insertWindow(ctx, pool, doctorID, day, 14*60, 18*60); err != nil {
				return err
			}
		}
	}

	return nil
}

func insertWindow(ctx context.Context, pool *pgxpool.Pool, doctorID uuid.UUID, day, startMinute, endMinute int) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO availability_windows (id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
	`, uuid.New(), doctorID, day, startMinute, endMinute)
	return err
}
