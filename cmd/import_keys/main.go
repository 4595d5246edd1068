package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"idlely/internal/config"
	"idlely/internal/db"
	applog "idlely/internal/log"
	"idlely/models"
)

const (
	keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	keyLength   = 12
	keyPrefix   = "IDLELY-"
)

var (
	numberPattern   = regexp.MustCompile(`\d+`)
	cleanWhitespace = regexp.MustCompile(`\s+`)
)

func main() {
	csvPath := "reference keys.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("locate csv: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	records, err := readCSV(csvPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	result, err := importKeys(context.Background(), database, records)
	if err != nil {
		return err
	}

	for _, code := range result.Generated {
		fmt.Fprintln(os.Stdout, code)
	}
	fmt.Fprintf(os.Stdout, "Imported %d reference keys (%d redeemed keys left untouched) from %s\n",
		result.Imported, result.Skipped, filepath.Base(csvPath))
	return nil
}

type importResult struct {
	Imported  int
	Skipped   int
	Generated []string
}

// importKeys upserts one key per record. Rows without a key get a freshly
// minted one. Redeemed keys are never modified.
func importKeys(ctx context.Context, database *gorm.DB, records []map[string]string) (importResult, error) {
	var result importResult
	for idx, record := range records {
		key, generated, err := buildActivationKey(record)
		if err != nil {
			return result, fmt.Errorf("record %d: %w", idx+1, err)
		}

		skipped := false
		err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.ActivationKey
			err := tx.Where("code = ?", key.Code).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&key).Error; err != nil {
					return fmt.Errorf("create reference key %q: %w", key.Code, err)
				}
				return nil
			case err != nil:
				return fmt.Errorf("find reference key %q: %w", key.Code, err)
			}

			if existing.Redeemed() {
				skipped = true
				return nil
			}
			updates := map[string]any{
				"duration_days": key.DurationDays,
				"note":          key.Note,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("update reference key %q: %w", key.Code, err)
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("record %d (%s): %w", idx+1, key.Code, err)
		}

		if skipped {
			applog.Debug(ctx, "skipping redeemed reference key", "code", key.Code)
			result.Skipped++
			continue
		}
		if generated {
			result.Generated = append(result.Generated, key.Code)
		}
		result.Imported++
	}
	return result, nil
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseCSV(file)
}

func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[strings.TrimSpace(key)] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func buildActivationKey(row map[string]string) (models.ActivationKey, bool, error) {
	code := models.NormalizeKey(row["Key"])
	generated := false
	if code == "" {
		minted, err := mintKey()
		if err != nil {
			return models.ActivationKey{}, false, err
		}
		code = minted
		generated = true
	}

	return models.ActivationKey{
		Code:         code,
		DurationDays: parseDuration(row["Duration"]),
		Note:         normalizeText(row["Note"]),
	}, generated, nil
}

func mintKey() (string, error) {
	id, err := gonanoid.Generate(keyAlphabet, keyLength)
	if err != nil {
		return "", fmt.Errorf("generate reference key: %w", err)
	}
	return keyPrefix + id[:4] + "-" + id[4:8] + "-" + id[8:], nil
}

// parseDuration reads "30", "30 days", "12 months" or "1 year". Blank and
// "lifetime" mean no expiry.
func parseDuration(value string) int {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "lifetime" || value == "n/a" {
		return 0
	}

	match := numberPattern.FindString(value)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}

	switch {
	case strings.Contains(value, "year"):
		return n * 365
	case strings.Contains(value, "month"):
		return n * 30
	case strings.Contains(value, "week"):
		return n * 7
	default:
		return n
	}
}

func normalizeText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return cleanWhitespace.ReplaceAllString(value, " ")
}
