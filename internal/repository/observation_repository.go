// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rmaia/inmet-station/internal/entities"
)

// ObservationRepository defines the persistence operations for weather
// observations.
type ObservationRepository interface {
	SaveObservations(observations []entities.Observation) error
	GetObservations(station string, from, to time.Time) ([]entities.Observation, error)
	GetLatest(station string) (*entities.Observation, error)
	GetStations() ([]string, error)
	GetLastUpdateTime() (time.Time, error)
	Close() error
}

// SQLiteObservationRepository implements ObservationRepository using
// SQLite.
type SQLiteObservationRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteObservationRepository opens (or creates) the observation
// database. An empty path selects data/observations.db.
func NewSQLiteObservationRepository(dbPath string) (*SQLiteObservationRepository, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "observations.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// busy_timeout and WAL keep the fetcher and the bot from tripping
	// over each other on the same file.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)
	slog.Info("opening observation database", "path", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		station TEXT NOT NULL,
		station_code TEXT,
		timestamp DATETIME NOT NULL,
		temp_mean REAL,
		temp_max REAL,
		temp_min REAL,
		humidity REAL,
		pressure REAL,
		precip REAL,
		wind_speed REAL,
		UNIQUE(station, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_obs_station ON observations(station);
	CREATE INDEX IF NOT EXISTS idx_obs_timestamp ON observations(timestamp);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteObservationRepository{db: db, DBPath: dbPath}, nil
}

// Close closes the database connection.
func (r *SQLiteObservationRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveObservations upserts observations; re-fetching a year overwrites
// the measurements of existing (station, timestamp) rows, so repeated
// fetches are idempotent.
func (r *SQLiteObservationRepository) SaveObservations(observations []entities.Observation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations(station, station_code, timestamp,
			temp_mean, temp_max, temp_min, humidity, pressure, precip, wind_speed)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station, timestamp) DO UPDATE SET
		station_code=excluded.station_code,
		temp_mean=excluded.temp_mean,
		temp_max=excluded.temp_max,
		temp_min=excluded.temp_min,
		humidity=excluded.humidity,
		pressure=excluded.pressure,
		precip=excluded.precip,
		wind_speed=excluded.wind_speed
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range observations {
		_, err := stmt.Exec(
			o.Station,
			o.StationCode,
			o.Timestamp.UTC(),
			nullable(o.TempMean),
			nullable(o.TempMax),
			nullable(o.TempMin),
			nullable(o.Humidity),
			nullable(o.Pressure),
			nullable(o.Precip),
			nullable(o.WindSpd),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert observation for %s at %s: %w", o.Station, o.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("observations saved", "count", len(observations))
	return nil
}

const selectColumns = `id, station, station_code, timestamp,
	temp_mean, temp_max, temp_min, humidity, pressure, precip, wind_speed`

// GetObservations returns a station's observations inside [from, to],
// sorted ascending by timestamp. Zero bounds are open.
func (r *SQLiteObservationRepository) GetObservations(station string, from, to time.Time) ([]entities.Observation, error) {
	query := `SELECT ` + selectColumns + ` FROM observations WHERE station = ?`
	args := []any{station}
	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY timestamp`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations for %s: %w", station, err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetLatest returns the newest observation for a station, or nil when
// the store is empty.
func (r *SQLiteObservationRepository) GetLatest(station string) (*entities.Observation, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+`
		FROM observations WHERE station = ?
		ORDER BY timestamp DESC LIMIT 1`, station)

	o, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest observation: %w", err)
	}
	return o, nil
}

// GetStations returns all station names present in the store.
func (r *SQLiteObservationRepository) GetStations() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT station FROM observations ORDER BY station`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return stations, nil
}

// GetLastUpdateTime returns the newest timestamp in the store, or the
// zero time when the store is empty. MAX(timestamp) would come back as
// a bare string (no declared column type), so the newest row is
// selected instead.
func (r *SQLiteObservationRepository) GetLastUpdateTime() (time.Time, error) {
	var ts time.Time
	err := r.db.QueryRow(`SELECT timestamp FROM observations ORDER BY timestamp DESC LIMIT 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last update time: %w", err)
	}
	return ts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*entities.Observation, error) {
	var o entities.Observation
	var tempMean, tempMax, tempMin, humidity, pressure, precip, wind sql.NullFloat64
	err := row.Scan(
		&o.ID,
		&o.Station,
		&o.StationCode,
		&o.Timestamp,
		&tempMean,
		&tempMax,
		&tempMin,
		&humidity,
		&pressure,
		&precip,
		&wind,
	)
	if err != nil {
		return nil, err
	}
	o.TempMean = fromNull(tempMean)
	o.TempMax = fromNull(tempMax)
	o.TempMin = fromNull(tempMin)
	o.Humidity = fromNull(humidity)
	o.Pressure = fromNull(pressure)
	o.Precip = fromNull(precip)
	o.WindSpd = fromNull(wind)
	return &o, nil
}

func scanObservations(rows *sql.Rows) ([]entities.Observation, error) {
	var result []entities.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
