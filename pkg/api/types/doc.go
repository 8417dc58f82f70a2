// Package types defines the JSON request and response bodies of the
// moderation HTTP API. The same types are decoded by pkg/client.
package types
