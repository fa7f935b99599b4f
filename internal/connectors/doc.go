// Package connectors holds the sources documents are read from before
// ingestion. Each connector turns a location into a stream of file changes.
package connectors
