package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finquest/finquest/internal/dbconfig"
)

// Scenario mirrors the JSON snapshot structure
type Scenario struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Difficulty  string          `json:"difficulty"`
	CompanyData json.RawMessage `json:"company_data"`
}

func main() {
	path := "internal/assets/scenarios.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert and count
	var (
		total    = len(scenarios)
		inserted int
		skipped  int
		errs     int
	)

	for _, s := range scenarios {
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO scenarios (id, name, difficulty, company_data, created_at)
            VALUES ($1, $2, $3, $4, now())
            ON CONFLICT (id) DO NOTHING
        `,
			s.ID, s.Name, s.Difficulty, s.CompanyData,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting scenario %s: %v\n", s.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Scenarios seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
