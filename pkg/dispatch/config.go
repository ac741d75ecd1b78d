package dispatch

// Config holds dispatch pipeline configuration.
// WorkerPath is optional: when empty, the spawn path looks the worker binary
// up on PATH and falls back to synchronous execution if that fails too.
type Config struct {
	WorkerPath    string `env:"EMAIL_WORKER_PATH"`                              // WorkerPath is the email worker binary launched for deferred batches.
	TempDir       string `env:"EMAIL_JOB_TEMP_DIR" envDefault:"/tmp/emailjobs"` // TempDir holds job files handed to the worker.
	FallbackEmail string `env:"NOTIFY_FALLBACK_EMAIL"`                          // FallbackEmail is used when no address can be resolved for a recipient.
}
