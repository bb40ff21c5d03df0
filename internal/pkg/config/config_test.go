package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 30},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "survey", DBName: "geosurvey"},
		NATS:     NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   ValkeyConfig{Addr: "localhost:6379", MapTTL: 300},
		Survey:   SurveyConfig{DefaultUTMZone: 16, DefaultUTMBand: "Q", MaxUploadBytes: 1 << 20},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Survey.DefaultUTMZone = 61
	cfg.Survey.DefaultUTMBand = "O"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "survey.default_utm_zone")
	assert.Contains(t, msg, "survey.default_utm_band")
	assert.Equal(t, 3, strings.Count(msg, "\n  - "))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("geosurvey-test")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Survey.DefaultUTMZone)
	assert.Equal(t, "Q", cfg.Survey.DefaultUTMBand)
	assert.Equal(t, "geosurvey-test", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GEOSURVEY_SURVEY_DEFAULT_UTM_ZONE", "31")
	t.Setenv("GEOSURVEY_SURVEY_DEFAULT_UTM_BAND", "u")

	cfg, err := Load("geosurvey-test")
	require.NoError(t, err)
	assert.Equal(t, 31, cfg.Survey.DefaultUTMZone)
	assert.Equal(t, "U", cfg.Survey.DefaultUTMBand)
}

func TestValidate_Driver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memory"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "sqlite"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}
