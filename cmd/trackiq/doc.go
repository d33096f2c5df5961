// Command trackiq extracts audio features, stores them, and serves them over
// HTTP.
package main
