package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

// backend holds the stores and services shared by the commands.
type backend struct {
	cfg        *config.Config
	pool       *postgres.Pool
	roster     *mariadb.Pool // nil unless ENROLLMENT_DATABASE_URL is set
	extractor  *extractor.Client
	attendance *attendance.Service
	enrollment *enrollment.Service
}

// openBackend connects to PostgreSQL (running migrations), optionally to the
// MariaDB roster database, and wires the services.
func openBackend(cfg *config.Config) (*backend, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	b := &backend{
		cfg:       cfg,
		pool:      pool,
		extractor: extractor.NewClient(&cfg.Extractor),
	}

	var enrollments database.EnrollmentWriter = postgres.NewEnrollmentRepository(pool)
	if cfg.Enrollment.DatabaseURL != "" {
		roster, err := mariadb.NewPool(cfg.Enrollment.DatabaseURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to roster database: %w", err)
		}
		b.roster = roster
		enrollments = roster
	}

	b.attendance = attendance.NewService(
		postgres.NewSessionRepository(pool),
		postgres.NewFactRepository(pool),
		enrollments,
		b.extractor,
		cfg.Matching,
	)
	b.enrollment = enrollment.NewService(enrollments, b.extractor, b.extractor.Model(), cfg.Matching.Tolerance)
	return b, nil
}

// rosterSource names where students and signatures are read from.
func (b *backend) rosterSource() string {
	if b.roster != nil {
		return "MariaDB"
	}
	return "PostgreSQL"
}

// Close releases the database connections.
func (b *backend) Close() {
	if b.roster != nil {
		if err := b.roster.Close(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}
	if err := b.pool.Close(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
}
