package auth

// Known OAuth scopes accepted by the API.
const (
	ScopeFootprintWrite = "footprint:write"
	ScopeFootprintRead  = "footprint:read"
)
