// Package utils provides shared helpers.
package utils

import "go.uber.org/zap"

// NewLogger creates a zap logger. Debug mode uses the development config
// (human-readable, DEBUG level); otherwise the production config (JSON, INFO).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
