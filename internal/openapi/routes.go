package openapi

import "net/http"

// Access is the credential policy guarding a route.
type Access int

const (
	Public     Access = iota // no credentials
	KeyOnly                  // x-api-key
	AdminOrKey               // admin bearer token or x-api-key
	TokenOnly                // bearer token
)

// Body describes a success envelope: {"success": true, <Field>: <Schema>},
// plus any integer counters listed in Counters and a "token" string when
// Token is set.
type Body struct {
	Field    string
	Schema   string
	Array    bool
	Counters []string
	Token    bool
}

// Route is one documented operation. Paths are relative to /api and use chi
// style {param} placeholders.
type Route struct {
	Method   string
	Path     string
	ID       string
	Summary  string
	Tag      string
	Access   Access
	Request  string // component schema of the request body, if any
	Status   int
	Response Body
	Query    []string
}

// Routes lists every operation the server mounts.
var Routes = []Route{
	{Method: http.MethodGet, Path: "/health", ID: "health", Summary: "Service and database health", Tag: "system",
		Status: http.StatusOK, Response: Body{Field: "database", Schema: "string"}},

	{Method: http.MethodPost, Path: "/auth/login", ID: "adminLogin", Summary: "Administrator login", Tag: "auth",
		Request: "LoginRequest", Status: http.StatusOK, Response: Body{Field: "admin", Schema: "Admin", Token: true}},
	{Method: http.MethodGet, Path: "/auth/me", ID: "adminMe", Summary: "Current administrator", Tag: "auth",
		Access: TokenOnly, Status: http.StatusOK, Response: Body{Field: "admin", Schema: "Admin"}},

	{Method: http.MethodPost, Path: "/users/register", ID: "registerUser", Summary: "Register a developer account", Tag: "users",
		Request: "RegisterRequest", Status: http.StatusCreated, Response: Body{Field: "user", Schema: "Developer", Token: true}},
	{Method: http.MethodPost, Path: "/users/login", ID: "userLogin", Summary: "Developer login", Tag: "users",
		Request: "LoginRequest", Status: http.StatusOK, Response: Body{Field: "user", Schema: "Developer", Token: true}},
	{Method: http.MethodGet, Path: "/users/me", ID: "userMe", Summary: "Current developer with redacted keys", Tag: "users",
		Access: TokenOnly, Status: http.StatusOK, Response: Body{Field: "user", Schema: "Developer"}},
	{Method: http.MethodPut, Path: "/users/profile", ID: "updateProfile", Summary: "Update developer profile", Tag: "users",
		Access: TokenOnly, Request: "DeveloperProfile", Status: http.StatusOK, Response: Body{Field: "user", Schema: "Developer"}},

	{Method: http.MethodPost, Path: "/api-keys/generate", ID: "generateKey", Summary: "Issue an API key; the secret is shown once", Tag: "api-keys",
		Access: TokenOnly, Request: "CreateKeyRequest", Status: http.StatusCreated, Response: Body{Field: "data", Schema: "IssuedAPIKey"}},
	{Method: http.MethodGet, Path: "/api-keys", ID: "listKeys", Summary: "List API keys without secrets", Tag: "api-keys",
		Access: TokenOnly, Status: http.StatusOK,
		Response: Body{Field: "data", Schema: "APIKey", Array: true, Counters: []string{"count", "activeCount", "maxLimit"}}},
	{Method: http.MethodDelete, Path: "/api-keys/{keyId}", ID: "revokeKey", Summary: "Revoke an API key", Tag: "api-keys",
		Access: TokenOnly, Status: http.StatusOK, Response: Body{Field: "message", Schema: "string"}},

	{Method: http.MethodPost, Path: "/chat/sessions", ID: "createSession", Summary: "Open a chat session", Tag: "chat",
		Access: KeyOnly, Request: "CreateSessionRequest", Status: http.StatusCreated, Response: Body{Field: "session", Schema: "ChatSession"}},
	{Method: http.MethodGet, Path: "/chat/sessions", ID: "listSessions", Summary: "List chat sessions", Tag: "chat",
		Access: KeyOnly, Status: http.StatusOK,
		Response: Body{Field: "sessions", Schema: "ChatSession", Array: true, Counters: []string{"sessionCount", "maxSessions"}}},
	{Method: http.MethodGet, Path: "/chat/sessions/{sessionId}/messages", ID: "listMessages", Summary: "Messages of a session in order", Tag: "chat",
		Access: KeyOnly, Status: http.StatusOK, Response: Body{Field: "messages", Schema: "ChatMessage", Array: true}},
	{Method: http.MethodDelete, Path: "/chat/sessions/{sessionId}", ID: "deleteSession", Summary: "Delete a session and its messages", Tag: "chat",
		Access: KeyOnly, Status: http.StatusOK, Response: Body{Field: "message", Schema: "string"}},
	{Method: http.MethodPost, Path: "/chat", ID: "sendMessage", Summary: "Send a message and receive the assistant reply", Tag: "chat",
		Access: KeyOnly, Request: "ChatRequest", Status: http.StatusOK, Response: Body{Field: "assistantMessage", Schema: "ChatMessage"}},
}

func init() {
	Routes = append(Routes, catalogRoutes("manufacturers", "Manufacturer", nil)...)
	Routes = append(Routes, catalogRoutes("categories", "Category", nil)...)
	Routes = append(Routes, catalogRoutes("aircraft", "Aircraft", []string{"manufacturerId", "categoryId", "search"})...)
}

// catalogRoutes expands the five conventional operations for one catalog
// collection.
func catalogRoutes(collection, schema string, query []string) []Route {
	item := "/" + collection + "/{id}"
	return []Route{
		{Method: http.MethodGet, Path: "/" + collection, ID: "list" + schema, Summary: "List active " + collection, Tag: collection,
			Status: http.StatusOK, Response: Body{Field: "data", Schema: schema, Array: true, Counters: []string{"count"}}, Query: query},
		{Method: http.MethodGet, Path: item, ID: "get" + schema, Summary: "Get one " + schema, Tag: collection,
			Status: http.StatusOK, Response: Body{Field: "data", Schema: schema}},
		{Method: http.MethodPost, Path: "/" + collection, ID: "create" + schema, Summary: "Create " + schema, Tag: collection,
			Access: AdminOrKey, Request: schema, Status: http.StatusCreated, Response: Body{Field: "data", Schema: schema}},
		{Method: http.MethodPut, Path: item, ID: "update" + schema, Summary: "Update " + schema, Tag: collection,
			Access: AdminOrKey, Request: schema, Status: http.StatusOK, Response: Body{Field: "data", Schema: schema}},
		{Method: http.MethodDelete, Path: item, ID: "delete" + schema, Summary: "Delete " + schema, Tag: collection,
			Access: AdminOrKey, Status: http.StatusOK, Response: Body{Field: "message", Schema: "string"}},
	}
}
