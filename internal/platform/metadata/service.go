package metadata

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// If the key doesn't exist, return an empty string, which is a valid default.
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue creates or updates a value for a given key within a transaction.
func SetValue(db *gorm.DB, key, value string) error {
	// Use GORM's OnConflict clause for an efficient and atomic "upsert" operation.
	// It will update the 'value' column if a record with the same 'key' already exists.
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&meta).Error
}

// --- Specific Helpers for Type Conversion ---

// GetSubmissionsOpen reports whether raffle submission is currently open.
// A missing key means submissions are closed.
func GetSubmissionsOpen(db *gorm.DB) (bool, error) {
	valueStr, err := GetValue(db, SubmissionsOpenKey)
	if err != nil {
		return false, err
	}
	if valueStr == "" {
		return false, nil
	}
	return strconv.ParseBool(valueStr)
}

// SetSubmissionsOpen persists the submissions-open flag.
func SetSubmissionsOpen(db *gorm.DB, open bool) error {
	return SetValue(db, SubmissionsOpenKey, strconv.FormatBool(open))
}

// GetLastRecomputeAt retrieves the timestamp of the last completed recompute run.
// The zero time is returned when no run has completed yet.
func GetLastRecomputeAt(db *gorm.DB) (time.Time, error) {
	valueStr, err := GetValue(db, LastRecomputeAtKey)
	if err != nil || valueStr == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, valueStr)
}

// SetLastRecomputeAt persists the timestamp of a completed recompute run.
func SetLastRecomputeAt(db *gorm.DB, t time.Time) error {
	return SetValue(db, LastRecomputeAtKey, t.UTC().Format(time.RFC3339))
}
