package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "clinician")
	t.Setenv("DB_NAME", "dashboard")
	t.Setenv("DB_MAX_CONNS", "bogus")

	cfg := DatabaseConfig{Port: 5432, MaxConns: 10}
	cfg.LoadFromEnv("DB")

	require.Equal(t, "db.internal", cfg.Host)
	require.Equal(t, 6543, cfg.Port)
	require.Equal(t, "clinician", cfg.User)
	require.Equal(t, "dashboard", cfg.Database)
	require.Equal(t, 10, cfg.MaxConns, "invalid int keeps previous value")
	require.True(t, cfg.HasCredentials())
	require.Contains(t, cfg.GetDSN(), "port=6543")
}

func TestMQTTConfig_LoadFromEnv_QoSRange(t *testing.T) {
	t.Setenv("MQTT_QOS", "7")
	cfg := MQTTConfig{QoS: 1}
	cfg.LoadFromEnv("MQTT")
	require.Equal(t, byte(1), cfg.QoS)

	t.Setenv("MQTT_QOS", "2")
	cfg.LoadFromEnv("MQTT")
	require.Equal(t, byte(2), cfg.QoS)
}
