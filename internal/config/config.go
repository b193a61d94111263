package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CREDENCE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CREDENCE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// SQLitePath returns the local database file used when no DATABASE_URL is
// configured. Defaults to "credence.db".
func SQLitePath() string {
	p := os.Getenv("SQLITE_PATH")
	if p == "" {
		return "credence.db"
	}
	return p
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// MaintenanceIntervalMinutes returns how often the maintenance sweeps run.
// Defaults to 60 if not set.
func MaintenanceIntervalMinutes() int {
	minutes, err := strconv.Atoi(os.Getenv("MAINTENANCE_INTERVAL_MINUTES"))
	if err != nil || minutes <= 0 {
		return 60
	}
	return minutes
}

// AgingDecayPerDay returns the exponential decay rate applied to stored
// evidence confidence. Defaults to 0.005 if not set.
func AgingDecayPerDay() float64 {
	rate, err := strconv.ParseFloat(os.Getenv("AGING_DECAY_PER_DAY"), 64)
	if err != nil || rate < 0 {
		return 0.005
	}
	return rate
}

// AgingMinConfidence returns the floor aging never decays evidence below.
// Defaults to 0.1 if not set.
func AgingMinConfidence() float64 {
	floor, err := strconv.ParseFloat(os.Getenv("AGING_MIN_CONFIDENCE"), 64)
	if err != nil || floor < 0 || floor > 1 {
		return 0.1
	}
	return floor
}

// MinEvidenceStrength returns the support threshold for claims.
// Defaults to 0.55 if not set.
func MinEvidenceStrength() float64 {
	strength, err := strconv.ParseFloat(os.Getenv("MIN_EVIDENCE_STRENGTH"), 64)
	if err != nil || strength <= 0 || strength > 1 {
		return 0.55
	}
	return strength
}

// DefeaterPenalty returns the per-defeater reduction applied to claim
// support. Defaults to 0.15 if not set.
func DefeaterPenalty() float64 {
	penalty, err := strconv.ParseFloat(os.Getenv("DEFEATER_PENALTY"), 64)
	if err != nil || penalty < 0 || penalty > 1 {
		return 0.15
	}
	return penalty
}

// SweepReadsPerSecond returns the store read throttle for the aging sweep.
// Defaults to 0, meaning unthrottled.
func SweepReadsPerSecond() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("SWEEP_READS_PER_SECOND"), 64)
	if err != nil || rps < 0 {
		return 0
	}
	return rps
}

// SweepReadBurst returns the burst size for the aging sweep throttle.
// Defaults to 1 if not set.
func SweepReadBurst() int {
	burst, err := strconv.Atoi(os.Getenv("SWEEP_READ_BURST"))
	if err != nil || burst <= 0 {
		return 1
	}
	return burst
}
