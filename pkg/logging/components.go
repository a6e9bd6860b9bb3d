package logging

// Component-specific loggers for easy incremental adoption

// Orchestrator logger for deployment orchestration operations
var Orchestrator = NewLogger("orchestrator")

// Engine logger for IaC engine invocations
var Engine = NewLogger("engine")

// History logger for run history operations
var History = NewLogger("history")

// Backend logger for backend validation probes
var Backend = NewLogger("backend")

// Project logger for project document persistence
var Project = NewLogger("project")

// Watch logger for the environment refresh loop
var Watch = NewLogger("watch")

// API logger for the status API server
var API = NewLogger("api")
