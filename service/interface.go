package service

// Service defines the lifecycle interface for infrastructure subsystems
// Services own long-lived resources: the audio output, the storage backend
//
// Lifecycle:
//  1. Construction (typed constructor taking its config section)
//  2. Init(args...) - open resources that may fail
//  3. Start() - launch background work, load state
//  4. [runtime operation]
//  5. Stop() - release resources
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Init before this one
	Dependencies() []string

	// Init prepares the service; args are passed through from Hub.InitAll
	Init(args ...any) error

	// Start begins service operation
	// Called after all services have initialized
	Start() error

	// Stop releases resources
	// Must be idempotent
	Stop() error
}
