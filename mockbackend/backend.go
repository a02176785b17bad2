// Package mockbackend is an in-memory fake of the pet-finder REST API. It implements only what
// the harness itself calls: the health endpoint, fixture creation and lookup, and the admin
// delete endpoint.
package mockbackend

import (
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/framework/helpers"
)

const (
	DefaultResource        = "announcements"
	DefaultCredentialField = "managementPassword"
)

// Backend is an http.Handler serving the fake API. It is safe for concurrent use.
type Backend struct {
	resource        string
	credentialField string
	adminToken      string
	healthy         bool
	createFailure   *cannedResponse
	records         map[string]ldvalue.Value
	deleted         []string
	handler         http.Handler
	debugLogger     framework.Logger
	lock            sync.Mutex
}

type cannedResponse struct {
	status int
	body   string
}

// Option is an option for New.
type Option func(*Backend) error

func (o Option) Configure(b *Backend) error { return o(b) }

// WithResource sets the collection name in the URL paths. The default is "announcements".
func WithResource(resource string) Option {
	return func(b *Backend) error {
		b.resource = resource
		return nil
	}
}

// WithCredentialField sets the response property that carries the management credential.
func WithCredentialField(name string) Option {
	return func(b *Backend) error {
		b.credentialField = name
		return nil
	}
}

func WithDebugLogger(logger framework.Logger) Option {
	return func(b *Backend) error {
		b.debugLogger = logger
		return nil
	}
}

// New creates a Backend that accepts admin requests carrying "Authorization: Bearer <adminToken>".
func New(adminToken string, options ...Option) *Backend {
	b := &Backend{
		resource:        DefaultResource,
		credentialField: DefaultCredentialField,
		adminToken:      adminToken,
		healthy:         true,
		records:         make(map[string]ldvalue.Value),
		debugLogger:     framework.NullLogger(),
	}
	_ = helpers.ApplyOptions(b, options...)

	router := mux.NewRouter()
	router.HandleFunc("/api/health", b.serveHealth).Methods("GET")
	router.HandleFunc("/api/v1/"+b.resource, b.serveCreate).Methods("POST")
	router.HandleFunc("/api/v1/"+b.resource+"/{id}", b.serveGet).Methods("GET")
	router.HandleFunc("/api/admin/v1/"+b.resource+"/{id}", b.serveDelete).Methods("DELETE")
	b.handler = router
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

// SetHealthy changes the status of the health endpoint.
func (b *Backend) SetHealthy(healthy bool) {
	b.lock.Lock()
	b.healthy = healthy
	b.lock.Unlock()
}

// FailNextCreate makes the next create request fail with the given status and body.
func (b *Backend) FailNextCreate(status int, body string) {
	b.lock.Lock()
	b.createFailure = &cannedResponse{status: status, body: body}
	b.lock.Unlock()
}

// Get returns a stored record.
func (b *Backend) Get(id string) (ldvalue.Value, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	v, ok := b.records[id]
	return v, ok
}

// IDs returns the ids of all stored records, sorted.
func (b *Backend) IDs() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return helpers.SortedKeys(b.records)
}

// Deleted returns the ids of records removed through the admin endpoint, in order.
func (b *Backend) Deleted() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.deleted...)
}

func (b *Backend) serveHealth(w http.ResponseWriter, _ *http.Request) {
	b.lock.Lock()
	healthy := b.healthy
	b.lock.Unlock()
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, ldvalue.ObjectBuild().SetString("status", "UP").Build())
}

func (b *Backend) serveCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fields := ldvalue.Parse(body)
	if fields.Type() != ldvalue.ObjectType {
		writeJSON(w, http.StatusBadRequest, errorBody("request body must be a JSON object"))
		return
	}

	b.lock.Lock()
	if f := b.createFailure; f != nil {
		b.createFailure = nil
		b.lock.Unlock()
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
		return
	}
	id := uuid.NewString()
	record := ldvalue.ObjectBuild()
	for k, v := range fields.AsValueMap().AsMap() {
		record.Set(k, v)
	}
	record.SetString("id", id)
	stored := record.Build()
	b.records[id] = stored
	b.lock.Unlock()

	b.debugLogger.Printf("Created %s %s: %s", b.resource, id, stored.JSONString())
	response := ldvalue.ObjectBuild()
	for k, v := range stored.AsValueMap().AsMap() {
		response.Set(k, v)
	}
	response.SetString(b.credentialField, uuid.NewString())
	writeJSON(w, http.StatusCreated, response.Build())
}

func (b *Backend) serveGet(w http.ResponseWriter, r *http.Request) {
	record, ok := b.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (b *Backend) serveDelete(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+b.adminToken {
		writeJSON(w, http.StatusUnauthorized, errorBody("admin token required"))
		return
	}
	id := mux.Vars(r)["id"]
	b.lock.Lock()
	_, ok := b.records[id]
	if ok {
		delete(b.records, id)
		b.deleted = append(b.deleted, id)
	}
	b.lock.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	b.debugLogger.Printf("Deleted %s %s", b.resource, id)
	w.WriteHeader(http.StatusNoContent)
}

func errorBody(message string) ldvalue.Value {
	return ldvalue.ObjectBuild().SetString("error", message).Build()
}

func writeJSON(w http.ResponseWriter, status int, value ldvalue.Value) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, value.JSONString())
}
