package types

type RunMode string

const (
	// ModeLocal is the mode for running both the API server and the job reconciler locally
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeWorker is the mode for running just the job reconciler
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LockBackend selects the implementation used for per-job mutual exclusion
type LockBackend string

const (
	LockBackendMemory LockBackend = "memory"
	LockBackendRedis  LockBackend = "redis"
)

// AuthProvider selects how bearer tokens are resolved to users
type AuthProvider string

const (
	AuthProviderSupabase AuthProvider = "supabase"
	AuthProviderJWT      AuthProvider = "jwt"
)
