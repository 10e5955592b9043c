package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/appdotbuilder/junior-science-lms/storage/database/sqlx"
)

type seeder interface {
	Seed(ctx context.Context) (sqlxrepos.SeedSummary, error)
}

// mockable
var newSeederFunc = func(db *sql.DB, driverName string, seed int64) seeder {
	return sqlxrepos.NewSeeder(db, driverName, seed)
}

func (cli *commandLine) seed(seed int64) error {
	summary, err := newSeederFunc(cli.db, cli.driverName, seed).Seed(context.Background())
	if err != nil {
		return err
	}
	cli.logger.Info(fmt.Sprintf(
		"seeded %d users, %d courses and %d enrollments; every password is %q",
		summary.Users, summary.Courses, summary.Enrollments, sqlxrepos.SeedPassword,
	))
	return nil
}
