package publisher

// Publisher broadcasts price observation events so downstream
// consumers (dashboards, analytics) can react without polling the
// store.
type Publisher interface {
	// Publish publishes an observation event under the given key
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
