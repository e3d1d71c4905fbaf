package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded by main before Load).
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Twilio       TwilioConfig
	Intelligence IntelligenceConfig
	Backend      BackendConfig
	Pipeline     PipelineConfig
}

type AppConfig struct {
	Env     string
	Port    int
	BaseURL string

	// CORSAllowedOrigins is a comma separated list; "*" allows any origin.
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Migrate applies embedded schema migrations on startup.
	Migrate bool
}

type RedisConfig struct {
	Host string
	Port int
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string

	// API key pair and TwiML app used to mint browser voice tokens.
	APIKeySID    string
	APIKeySecret string
	TwiMLAppSID  string
	TokenTTL     time.Duration

	ValidateWebhooks bool
}

type IntelligenceConfig struct {
	// DefaultServiceSID is used when no per-prefix service matches.
	DefaultServiceSID string

	// Services maps a country calling code prefix ("+34") to a service SID.
	Services map[string]string
}

type BackendConfig struct {
	// URL is the base of the tracking backend. Empty disables tracking.
	URL string
}

type PipelineConfig struct {
	MinDurationSeconds   int
	RecordingMaxAttempts int
	RecordingPollDelay   time.Duration
	SummaryDelay         time.Duration
	SummaryPollAttempts  int
	SummaryPollDelay     time.Duration

	// MatchPolicy is "name" or "name-or-type".
	MatchPolicy string
	ResultName  string
}

const (
	MatchPolicyName       = "name"
	MatchPolicyNameOrType = "name-or-type"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/")
	c.App.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

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
	{
		b, err := optionalBool("DB_MIGRATE", false)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.DB.Migrate = b
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.PhoneNumber = strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER"))
	c.Twilio.APIKeySID = strings.TrimSpace(os.Getenv("TWILIO_API_KEY_SID"))
	c.Twilio.APIKeySecret = os.Getenv("TWILIO_API_KEY_SECRET")
	c.Twilio.TwiMLAppSID = strings.TrimSpace(os.Getenv("TWIML_APP_SID"))
	c.Twilio.TokenTTL = mustDuration("VOICE_TOKEN_TTL")
	{
		// Signature checks default on in production; everywhere else they are opt-in.
		def := c.App.Env == "production"
		b, err := optionalBool("TWILIO_VALIDATE_WEBHOOKS", def)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Twilio.ValidateWebhooks = b
	}

	c.Intelligence.DefaultServiceSID = strings.TrimSpace(os.Getenv("CONVERSATION_INTELLIGENCE_SERVICE_SID"))
	{
		m, err := parsePrefixMap("CONVERSATION_INTELLIGENCE_SERVICES", os.Getenv("CONVERSATION_INTELLIGENCE_SERVICES"))
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Intelligence.Services = m
	}

	c.Backend.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/")

	{
		n, err := optionalInt("SUMMARY_MIN_DURATION")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.MinDurationSeconds = n
	}
	{
		n, err := optionalInt("RECORDING_MAX_ATTEMPTS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.RecordingMaxAttempts = n
	}
	c.Pipeline.RecordingPollDelay = mustDuration("RECORDING_POLL_DELAY")
	c.Pipeline.SummaryDelay = mustDuration("SUMMARY_DELAY")
	{
		n, err := optionalInt("SUMMARY_POLL_ATTEMPTS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.SummaryPollAttempts = n
	}
	c.Pipeline.SummaryPollDelay = mustDuration("SUMMARY_POLL_DELAY")
	c.Pipeline.MatchPolicy = strings.TrimSpace(os.Getenv("SUMMARY_MATCH_POLICY"))
	c.Pipeline.ResultName = strings.TrimSpace(os.Getenv("SUMMARY_RESULT_NAME"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid field and fills defaults in place.
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
	if c.App.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	} else if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.App.BaseURL))
	}
	if len(c.App.CORSAllowedOrigins) == 0 {
		c.App.CORSAllowedOrigins = []string{"*"}
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

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.PhoneNumber == "" {
		errs = append(errs, errors.New("TWILIO_PHONE_NUMBER is required"))
	}
	if c.Twilio.APIKeySID == "" {
		errs = append(errs, errors.New("TWILIO_API_KEY_SID is required"))
	}
	if c.Twilio.APIKeySecret == "" {
		errs = append(errs, errors.New("TWILIO_API_KEY_SECRET is required"))
	}
	if c.Twilio.TwiMLAppSID == "" {
		errs = append(errs, errors.New("TWIML_APP_SID is required"))
	}
	if c.Twilio.TokenTTL <= 0 {
		c.Twilio.TokenTTL = time.Hour
	}
	// Twilio rejects access tokens valid for more than 24h.
	if c.Twilio.TokenTTL > 24*time.Hour {
		errs = append(errs, fmt.Errorf("VOICE_TOKEN_TTL must be at most 24h, got %s", c.Twilio.TokenTTL))
	}

	if c.Intelligence.DefaultServiceSID == "" {
		errs = append(errs, errors.New("CONVERSATION_INTELLIGENCE_SERVICE_SID is required"))
	}

	if c.Pipeline.MinDurationSeconds <= 0 {
		c.Pipeline.MinDurationSeconds = 50
	}
	if c.Pipeline.RecordingMaxAttempts <= 0 {
		c.Pipeline.RecordingMaxAttempts = 10
	}
	if c.Pipeline.RecordingPollDelay <= 0 {
		c.Pipeline.RecordingPollDelay = 3 * time.Second
	}
	if c.Pipeline.SummaryDelay <= 0 {
		c.Pipeline.SummaryDelay = 30 * time.Second
	}
	if c.Pipeline.SummaryPollAttempts <= 0 {
		c.Pipeline.SummaryPollAttempts = 1
	}
	if c.Pipeline.SummaryPollDelay <= 0 {
		c.Pipeline.SummaryPollDelay = 15 * time.Second
	}
	switch c.Pipeline.MatchPolicy {
	case "":
		c.Pipeline.MatchPolicy = MatchPolicyName
	case MatchPolicyName, MatchPolicyNameOrType:
	default:
		errs = append(errs, fmt.Errorf("SUMMARY_MATCH_POLICY must be one of name, name-or-type, got %q", c.Pipeline.MatchPolicy))
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

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
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

// parsePrefixMap parses "+34=GA1,+52=GA2".
func parsePrefixMap(key, raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range splitList(raw) {
		prefix, sid, ok := strings.Cut(item, "=")
		prefix, sid = strings.TrimSpace(prefix), strings.TrimSpace(sid)
		if !ok || !strings.HasPrefix(prefix, "+") || len(prefix) < 2 || sid == "" {
			return nil, fmt.Errorf("%s entries must look like +CC=SID, got %q", key, item)
		}
		out[prefix] = sid
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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
