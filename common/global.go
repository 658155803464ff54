package common

// Global non-constant variables go here.

// GlobalConfig - Global singleton.
var GlobalConfig = DefaultConfig()

// GlobalStatus - Outcome of the most recent cycles, shared with the HTTP server.
var GlobalStatus Status
