package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultGeofenceRadiusMeters is the physical radius of a monitored region.
const DefaultGeofenceRadiusMeters = 150.0

// Profile is the runtime configuration for the Echoes core.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where Echoes stores its own data
	DSN string
	// Driver is the database driver (sqlite)
	Driver string
	// Version is the current version of the app
	Version string

	// GeofenceRadiusMeters is the radius of every monitored region.
	GeofenceRadiusMeters float64 // ECHOES_GEOFENCE_RADIUS_METERS
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from ECHOES_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("ECHOES_MODE", p.Mode)
	p.Data = getEnvOrDefault("ECHOES_DATA", p.Data)
	p.DSN = getEnvOrDefault("ECHOES_DSN", p.DSN)
	p.Driver = getEnvOrDefault("ECHOES_DRIVER", p.Driver)

	if v := os.Getenv("ECHOES_GEOFENCE_RADIUS_METERS"); v != "" {
		if radius, err := strconv.ParseFloat(v, 64); err == nil && radius > 0 {
			p.GeofenceRadiusMeters = radius
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.GeofenceRadiusMeters <= 0 {
		p.GeofenceRadiusMeters = DefaultGeofenceRadiusMeters
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("echoes_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
