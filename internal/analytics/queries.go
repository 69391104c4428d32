// Package analytics runs the aggregate admission queries backing the
// analysis page. Every literal is bound as a query parameter; the
// package never interpolates values into SQL text.
package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	fall2026       = "Fall 2026"
	acceptedPrefix = "accepted%"

	// extra_1 is the only multi-row query; its result set is capped.
	maxQueryLimit = 100
)

// QueryAll executes every analysis query and returns the rendered
// answers keyed q1..q9, extra_1, extra_2. Numeric answers are formatted
// to two decimals; absent aggregates render as "N/A".
func QueryAll(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	answers := make(map[string]string)

	fall2026Count, err := scalarInt(ctx, pool,
		"SELECT COUNT(*) FROM applicants WHERE term = $1", fall2026)
	if err != nil {
		return nil, err
	}
	answers["q1"] = fmt.Sprintf("%d", fall2026Count)

	pctInternational, err := scalarNumeric(ctx, pool, `
		SELECT ROUND(
			100.0 * SUM(CASE WHEN us_or_international = $1 THEN 1 ELSE 0 END)
			/ COUNT(*), 2)
		FROM applicants
		WHERE us_or_international IS NOT NULL`, "International")
	if err != nil {
		return nil, err
	}
	answers["q2"] = formatNumeric(pctInternational)

	if err := avgScores(ctx, pool, answers); err != nil {
		return nil, err
	}

	avgGPAUS, err := scalarNumeric(ctx, pool, `
		SELECT ROUND(AVG(gpa)::numeric, 2)
		FROM applicants
		WHERE term = $1 AND us_or_international = $2`, fall2026, "American")
	if err != nil {
		return nil, err
	}
	answers["q4"] = formatNumeric(avgGPAUS)

	pctAccepted, err := scalarNumeric(ctx, pool, `
		SELECT ROUND(
			100.0 * SUM(CASE WHEN status ILIKE $1 THEN 1 ELSE 0 END)
			/ COUNT(*), 2)
		FROM applicants
		WHERE term = $2`, acceptedPrefix, fall2026)
	if err != nil {
		return nil, err
	}
	answers["q5"] = formatNumeric(pctAccepted)

	avgGPAAccepted, err := scalarNumeric(ctx, pool, `
		SELECT ROUND(AVG(gpa)::numeric, 2)
		FROM applicants
		WHERE term = $1 AND status ILIKE $2`, fall2026, acceptedPrefix)
	if err != nil {
		return nil, err
	}
	answers["q6"] = formatNumeric(avgGPAAccepted)

	jhuCount, err := scalarInt(ctx, pool, `
		SELECT COUNT(*)
		FROM applicants
		WHERE degree = $1
		  AND program ILIKE $2
		  AND comments ILIKE $3`, "Masters", "%computer science%", "%johns hopkins%")
	if err != nil {
		return nil, err
	}
	answers["q7"] = fmt.Sprintf("%d", jhuCount)

	topAccepts, err := scalarInt(ctx, pool, `
		SELECT COUNT(*)
		FROM applicants
		WHERE term LIKE $1
		  AND status ILIKE $2
		  AND degree = $3
		  AND program ILIKE $4
		  AND (comments ILIKE $5 OR comments ILIKE $6
		    OR comments ILIKE $7 OR comments ILIKE $8)`,
		"%2026%", acceptedPrefix, "PhD", "%computer science%",
		"%georgetown%", "%mit%", "%stanford%", "%carnegie mellon%")
	if err != nil {
		return nil, err
	}
	answers["q8"] = fmt.Sprintf("%d", topAccepts)

	// Same question as q8 against the standardized columns, so the raw
	// text matching and the structured extraction can be compared.
	structuredAccepts, err := scalarInt(ctx, pool, `
		SELECT COUNT(*)
		FROM applicants
		WHERE term LIKE $1
		  AND status ILIKE $2
		  AND degree = $3
		  AND llm_generated_program ILIKE $4
		  AND (llm_generated_university ILIKE $5 OR llm_generated_university ILIKE $6
		    OR llm_generated_university ILIKE $7 OR llm_generated_university ILIKE $8)`,
		"%2026%", acceptedPrefix, "PhD", "%computer science%",
		"%georgetown%", "%mit%", "%stanford%", "%carnegie mellon%")
	if err != nil {
		return nil, err
	}
	answers["q9"] = fmt.Sprintf("%d", structuredAccepts)

	gpaByDegree, err := avgGPAByDegree(ctx, pool)
	if err != nil {
		return nil, err
	}
	answers["extra_1"] = gpaByDegree

	overallAccept, err := scalarNumeric(ctx, pool, `
		SELECT ROUND(
			100.0 * SUM(CASE WHEN status ILIKE $1 THEN 1 ELSE 0 END)
			/ COUNT(*), 2)
		FROM applicants`, acceptedPrefix)
	if err != nil {
		return nil, err
	}
	answers["extra_2"] = formatNumeric(overallAccept)

	log.Debug().Int("answers", len(answers)).Msg("Analysis queries complete")
	return answers, nil
}

// avgScores fills q3 with the overall GPA and GRE averages.
func avgScores(ctx context.Context, pool *pgxpool.Pool, answers map[string]string) error {
	var gpa, gre, greV, greAW *float64
	err := pool.QueryRow(ctx, `
		SELECT
			ROUND(AVG(gpa)::numeric, 2),
			ROUND(AVG(gre)::numeric, 2),
			ROUND(AVG(gre_v)::numeric, 2),
			ROUND(AVG(gre_aw)::numeric, 2)
		FROM applicants`).Scan(&gpa, &gre, &greV, &greAW)
	if err != nil {
		return fmt.Errorf("averaging scores: %w", err)
	}
	answers["q3"] = fmt.Sprintf("GPA: %s, GRE: %s, GRE V: %s, GRE AW: %s",
		formatNumeric(gpa), formatNumeric(gre), formatNumeric(greV), formatNumeric(greAW))
	return nil
}

// avgGPAByDegree renders the per-degree GPA averages as a single
// "degree: avg" list.
func avgGPAByDegree(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	rows, err := pool.Query(ctx, `
		SELECT degree, ROUND(AVG(gpa)::numeric, 2)
		FROM applicants
		WHERE gpa IS NOT NULL
		GROUP BY degree
		ORDER BY degree
		LIMIT $1`, maxQueryLimit)
	if err != nil {
		return "", fmt.Errorf("averaging gpa by degree: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var degree *string
		var avg *float64
		if err := rows.Scan(&degree, &avg); err != nil {
			return "", fmt.Errorf("scanning gpa by degree: %w", err)
		}
		name := "Unknown"
		if degree != nil {
			name = *degree
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, formatNumeric(avg)))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading gpa by degree: %w", err)
	}
	if len(parts) == 0 {
		return "N/A", nil
	}
	return strings.Join(parts, ", "), nil
}

func scalarInt(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (int, error) {
	var n int
	if err := pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting applicants: %w", err)
	}
	return n, nil
}

func scalarNumeric(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (*float64, error) {
	var v *float64
	if err := pool.QueryRow(ctx, query, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("aggregating applicants: %w", err)
	}
	return v, nil
}

// formatNumeric renders a nullable aggregate with two decimals.
func formatNumeric(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
