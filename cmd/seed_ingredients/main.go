// Command seed_ingredients bulk-loads the ingredient reference data from a
// CSV file of "name,measurement_unit" rows. Existing (name, unit) pairs are
// skipped, so reruns are safe.
package main

import (
	"encoding/csv"
	"flag"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mealgram/backend/config"
	"github.com/mealgram/backend/internal/database"
	"github.com/mealgram/backend/internal/models"
)

func main() {
	path := flag.String("file", "data/ingredients.csv", "path to the ingredients CSV file")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	file, err := os.Open(*path)
	if err != nil {
		logger.WithError(err).Fatal("failed to open CSV file")
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2

	var created, skipped int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.WithError(err).Fatal("failed to read CSV row")
		}

		name, unit := row[0], row[1]
		var existing int64
		if err := db.Model(&models.Ingredient{}).
			Where("name = ? AND measurement_unit = ?", name, unit).
			Count(&existing).Error; err != nil {
			logger.WithError(err).Fatal("failed to check for existing ingredient")
		}
		if existing > 0 {
			skipped++
			continue
		}

		if err := db.Create(&models.Ingredient{Name: name, MeasurementUnit: unit}).Error; err != nil {
			logger.WithError(err).WithField("name", name).Fatal("failed to insert ingredient")
		}
		created++
	}

	logger.WithFields(logrus.Fields{
		"created": created,
		"skipped": skipped,
	}).Info("ingredient import finished")
}
