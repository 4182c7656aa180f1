package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings helps with list parsing and trimming

    "github.com/joho/godotenv" // godotenv loads a local .env file when present
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and counters, byte slices for key material.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign admin API JWTs
    AccessTTLMin int    // admin access token time-to-live in minutes

    BotToken      string  // Telegram bot token
    WebhookSecret string  // path secret for the inbound webhook route
    AdminIDs      []int64 // Telegram ids allowed to run admin commands

    HashSalt           []byte // fixed 32-byte salt for identity hashing
    SweepIntervalHrs   int    // hours between full sweeps of the general track
    RefreshCooldownSec int    // cooldown between /refresh runs, in seconds

    XUIBaseURL      string // 3x-ui panel base URL
    XUIUsername     string // panel login
    XUIPassword     string // panel password
    XUIInboundID    int    // inbound pool for timed (Plus) credentials
    XUIInboundIDInf int    // inbound pool for unlimited credentials

    InstructionURL string // connection instruction page shown after purchase
    PrivacyURL     string // privacy policy link
    TermsURL       string // terms of use link

    AMQPURL string // RabbitMQ broker for operator alerts (empty disables)
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is applied first if it
// exists.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The identity hash
// salt is validated here: anything other than exactly 32 bytes is a
// configuration error, never a runtime one.
func Load() Config {
    _ = godotenv.Load() // absence of .env is fine; real env always wins

    salt := []byte(must("HASH_SALT"))
    if len(salt) != 32 {
        log.Fatalf("HASH_SALT must be exactly 32 bytes long, got %d bytes", len(salt))
    }

    return Config{
        Env:          must("APP_ENV"),
        Port:         must("APP_PORT"),
        DBUser:       must("DB_USER"),
        DBPass:       os.Getenv("DB_PASS"), // empty allowed
        DBHost:       must("DB_HOST"),
        DBPort:       must("DB_PORT"),
        DBName:       must("DB_NAME"),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),

        BotToken:      must("BOT_TOKEN"),
        WebhookSecret: must("WEBHOOK_SECRET"),
        AdminIDs:      mustInt64List("ADMINS"),

        HashSalt:           salt,
        SweepIntervalHrs:   envInt("MEMORY_CLEAN_INTERVAL_HOURS", 6),
        RefreshCooldownSec: envInt("REFRESH_COOLDOWN_SECONDS", 1800),

        XUIBaseURL:      must("XUI_BASE_URL"),
        XUIUsername:     must("XUI_USERNAME"),
        XUIPassword:     must("XUI_PASSWORD"),
        XUIInboundID:    mustInt("XUI_INBOUND_ID"),
        XUIInboundIDInf: mustInt("XUI_INBOUND_ID_INF"),

        InstructionURL: must("INSTRUCTION_URL"),
        PrivacyURL:     must("PRIVACY_URL"),
        TermsURL:       must("TERMS_URL"),

        AMQPURL: os.Getenv("AMQP_URL"), // optional; alerts degrade to logs
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// mustInt64List parses a comma-separated list of numeric ids.  Brackets and
// spaces are tolerated so the variable can be pasted in either "1,2" or
// "[1, 2]" form.  An empty result is fatal: a bot without admins cannot
// route support traffic anywhere.
func mustInt64List(key string) []int64 {
    s := must(key)
    s = strings.NewReplacer("[", "", "]", "", " ", "").Replace(s)
    var ids []int64
    for _, part := range strings.Split(s, ",") {
        if part == "" {
            continue
        }
        n, err := strconv.ParseInt(part, 10, 64)
        if err != nil {
            log.Fatalf("invalid id in %s: %q", key, part)
        }
        ids = append(ids, n)
    }
    if len(ids) == 0 {
        log.Fatalf("%s must contain at least one id", key)
    }
    return ids
}

func envInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return def
}
