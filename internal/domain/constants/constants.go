// Package constants defines shared values used across layers.
package constants

// Deployment environments.
const (
	EnvDevelop    = "develop"
	EnvStaging    = "staging"
	EnvProduction = "production"
)

// Pub/sub provider selection, matching the pubsub.provider config key.
const (
	PubSubProviderGoogle = "google"
	PubSubProviderLocal  = "local"
	PubSubProviderNoop   = "noop"
)

// Job names carried in pub/sub messages and dispatched by the worker.
const (
	JobSendUserKey     = "user.send_key"
	JobResendUserKey   = "user.resend_key"
	JobSendDeactivated = "user.send_deactivated"
	JobRunDigest       = "digest.run"
	JobStaleSweep      = "digest.stale_sweep"
)
