package config

type HTTPConfig struct {
	// Port is 0 when the status API is disabled
	Port        int
	ServiceName string
}

func NewHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:        getIntEnv("STEER_HTTP_PORT", 0),
		ServiceName: getEnv("STEER_SERVICE_NAME", "steer-master"),
	}
}
