package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Twilio TwilioConfig
	Agent  AgentConfig
	Office OfficeConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicHost is the externally reachable host used to build the
	// media-stream URL handed to the carrier (e.g. "calls.example.com").
	PublicHost string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string

	// SignatureBypass disables webhook signature validation.
	// Only honored outside production.
	SignatureBypass bool
}

// AgentConfig points at the remote conversational-AI transport.
type AgentConfig struct {
	WSURL  string
	APIKey string

	// AgentID selects the configured agent on the remote side.
	AgentID string

	// ConnectTimeout bounds the initiation handshake.
	ConnectTimeout time.Duration

	// IdleTimeout force-closes a media-stream connection that has carried
	// no frames for this long. Zero disables the timeout.
	IdleTimeout time.Duration

	// MaxLiveSessions caps simultaneous AI sessions; calls over the cap
	// route to voicemail.
	MaxLiveSessions int
}

// OfficeConfig drives the voicemail gate.
type OfficeConfig struct {
	Timezone  string
	OpenHour  int
	CloseHour int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PublicHost = strings.TrimSpace(os.Getenv("PUBLIC_HOST"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optDuration("JWT_ACCESS_TTL")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.PhoneNumber = strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER"))
	c.Twilio.SignatureBypass = optBool("TWILIO_WEBHOOK_BYPASS")

	c.Agent.WSURL = strings.TrimSpace(os.Getenv("AGENT_WS_URL"))
	c.Agent.APIKey = os.Getenv("AGENT_API_KEY")
	c.Agent.AgentID = strings.TrimSpace(os.Getenv("AGENT_ID"))
	c.Agent.ConnectTimeout = optDuration("AGENT_CONNECT_TIMEOUT")
	c.Agent.IdleTimeout = optDuration("SESSION_IDLE_TIMEOUT")
	c.Agent.MaxLiveSessions = optInt("MAX_LIVE_SESSIONS")

	c.Office.Timezone = strings.TrimSpace(os.Getenv("OFFICE_TIMEZONE"))
	c.Office.OpenHour = optInt("OFFICE_OPEN_HOUR")
	c.Office.CloseHour = optInt("OFFICE_CLOSE_HOUR")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicHost == "" {
		errs = append(errs, errors.New("PUBLIC_HOST is required"))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.PhoneNumber == "" {
		errs = append(errs, errors.New("TWILIO_PHONE_NUMBER is required"))
	}
	if c.Twilio.SignatureBypass && c.IsProduction() {
		errs = append(errs, errors.New("TWILIO_WEBHOOK_BYPASS must not be set in production"))
	}

	if c.Agent.WSURL == "" {
		errs = append(errs, errors.New("AGENT_WS_URL is required"))
	}
	if c.Agent.APIKey == "" {
		errs = append(errs, errors.New("AGENT_API_KEY is required"))
	}
	if c.Agent.AgentID == "" {
		errs = append(errs, errors.New("AGENT_ID is required"))
	}
	if c.Agent.ConnectTimeout <= 0 {
		c.Agent.ConnectTimeout = 10 * time.Second
	}
	if c.Agent.IdleTimeout < 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TIMEOUT must not be negative"))
	}
	if c.Agent.MaxLiveSessions <= 0 {
		c.Agent.MaxLiveSessions = 10
	}

	if c.Office.Timezone == "" {
		c.Office.Timezone = "Local"
	}
	if c.Office.OpenHour == 0 && c.Office.CloseHour == 0 {
		c.Office.OpenHour = 9
		c.Office.CloseHour = 17
	}
	if c.Office.OpenHour < 0 || c.Office.OpenHour > 23 {
		errs = append(errs, fmt.Errorf("OFFICE_OPEN_HOUR must be within [0,23], got %d", c.Office.OpenHour))
	}
	if c.Office.CloseHour < 1 || c.Office.CloseHour > 24 {
		errs = append(errs, fmt.Errorf("OFFICE_CLOSE_HOUR must be within [1,24], got %d", c.Office.CloseHour))
	}
	if c.Office.CloseHour <= c.Office.OpenHour {
		errs = append(errs, errors.New("OFFICE_CLOSE_HOUR must be greater than OFFICE_OPEN_HOUR"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// StreamURL is the media-stream endpoint handed to the carrier.
func (c Config) StreamURL() string {
	return fmt.Sprintf("wss://%s/webhooks/twilio/stream", c.App.PublicHost)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
