// Package observability builds the zap logger shared by every component
// and the context helpers that attach request-scoped fields to it.
package observability
