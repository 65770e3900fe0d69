package registry

// DefaultBackendURL is the hosted agent backend. Overridable via config or
// SHERPA_BACKEND_URL for self-hosted deployments.
const DefaultBackendURL = "https://api.sherpa.trade"

// ChatPath is the conversational completion endpoint on the backend.
const ChatPath = "/chat"
