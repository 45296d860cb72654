package config

import "time"

type HTTP struct{}

var _ HTTPConfig = HTTP{}

// GetRequestTimeout bounds every REST call, including the refresh call.
func (HTTP) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 15*time.Second)
}

// GetDialTimeout bounds the push channel handshake.
func (HTTP) GetDialTimeout() time.Duration {
	return GetEnvDuration("WS_DIAL_TIMEOUT", 10*time.Second)
}

func (HTTP) GetLogoutTimeout() time.Duration {
	return GetEnvDuration("LOGOUT_TIMEOUT", 5*time.Second)
}
