package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/practice-calendar/internal/db"
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

	practitioners, err := seedPractitioners(context.Background(), pool, 40)
	if err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	patients, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, practitioners, patients, 5000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}
	if err := seedManualEvents(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed manual events: %v", err)
	}

	log.Println("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d practitioners", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Physiotherapy",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
	}

	// A handful of shared organizations so the organization scope has
	// something to select.
	orgs := make([]uuid.UUID, 5)
	for i := range orgs {
		orgs[i] = uuid.New()
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		var orgID *uuid.UUID
		if gofakeit.Number(0, 4) > 0 { // most practitioners belong to an organization
			orgID = &orgs[gofakeit.Number(0, len(orgs)-1)]
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, organization_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, orgID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("practitioners seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, practitioners, patients []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	const batchSize = 500

	statuses := []string{"pending", "confirmed", "confirmed", "completed", "cancelled_by_patient", "no_show"}
	today := time.Now().Truncate(24 * time.Hour)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			practitioner := practitioners[gofakeit.Number(0, len(practitioners)-1)]
			patient := patients[gofakeit.Number(0, len(patients)-1)]

			// Spread appointments over four weeks either side of today,
			// during working hours, on the quarter hour.
			day := today.AddDate(0, 0, gofakeit.Number(-28, 28))
			startHour := gofakeit.Number(7, 19)
			startMin := gofakeit.Number(0, 3) * 15
			durMin := gofakeit.Number(1, 4) * 15

			date := day.Format("2006-01-02")
			start := fmt.Sprintf("%02d:%02d:00", startHour, startMin)
			endMinutes := startHour*60 + startMin + durMin
			endClock := fmt.Sprintf("%02d:%02d:00", endMinutes/60, endMinutes%60)

			status := statuses[gofakeit.Number(0, len(statuses)-1)]
			if day.After(today) {
				// Future appointments have not run their course yet.
				status = statuses[gofakeit.Number(0, 2)]
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, practitioner_id, patient_id,
					appointment_date, start_time, end_time,
					status, source, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4::date, $5::time, $6::time, $7, 'practice', now(), now())
			`, id, practitioner, patient, date, start, endClock, status)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}

func seedManualEvents(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d manual events", count)

	titles := []string{"Team meeting", "Lunch block", "Training", "Admin time", "Offsite"}
	today := time.Now().Truncate(24 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		day := today.AddDate(0, 0, gofakeit.Number(-28, 28))
		start := day.Add(time.Duration(gofakeit.Number(8, 17)) * time.Hour)
		end := start.Add(time.Duration(gofakeit.Number(1, 4)*30) * time.Minute)
		title := titles[gofakeit.Number(0, len(titles)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO external_events (
				id, event_date, start_at, end_at,
				title, type_detected, source, created_at, updated_at
			)
			VALUES ($1, $2::date, $3, $4, $5, 'appointment', 'manual', now(), now())
		`, id, day.Format("2006-01-02"), start, end, title)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("manual events seeded")
	return nil
}
