// Package timeouts defines the timeout constants shared by cardpress commands.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps a single API request, including card rendering.
const Request = 30 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// StoreOpen caps the connectivity check performed when a store is opened.
const StoreOpen = 10 * time.Second
