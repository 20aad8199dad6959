package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/burntcarrot/slatepad/commons"
	"github.com/burntcarrot/slatepad/merge"
	"github.com/burntcarrot/slatepad/serializer"
	"github.com/burntcarrot/slatepad/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// api serves the canonical document over HTTP and WebSocket.
type api struct {
	store      *store.Store
	serializer *serializer.Serializer
	hub        *hub
	log        logrus.FieldLogger
	maxBody    int64
}

// newServer wires the store, merge engine, serializer and hub behind an http.Handler.
func newServer(flags Flags, logger *logrus.Logger) (http.Handler, error) {
	policy, err := merge.ParseTextPolicy(flags.TextPolicy)
	if err != nil {
		return nil, err
	}
	engine := merge.Engine{
		Text:     merge.Reconciler{Policy: policy},
		MaxDepth: flags.MaxDepth,
	}

	st := store.New(nil)
	a := &api{
		store:      st,
		serializer: serializer.New(st, engine, serializer.WithLogger(logger.WithField("component", "serializer"))),
		log:        logger,
		maxBody:    flags.MaxBody,
	}
	a.hub = newHub(a, flags.CORSOrigin, logger.WithField("component", "hub"))

	// Clients that were only queued hear about the merge from the broadcast.
	a.serializer.OnDrain(a.hub.broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc("/getData", a.handleGetData)
	mux.HandleFunc("/sendData", a.handleSendData)
	mux.HandleFunc("/login", a.handleLogin)
	mux.HandleFunc("/ws", a.hub.handleConn)

	return withCORS(flags.CORSOrigin, mux), nil
}

// handleGetData returns the canonical document.
func (a *api) handleGetData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.store.Current())
}

// handleSendData merges the posted snapshot into the canonical document.
func (a *api) handleSendData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, commons.Response{Error: err.Error()})
		return
	}

	doc, err := decodeSnapshot(body)
	if err != nil {
		a.log.WithError(err).Warn("rejected malformed snapshot")
		writeJSON(w, http.StatusBadRequest, commons.Response{Error: err.Error()})
		return
	}

	resp, status := a.submit(doc)
	writeJSON(w, status, resp)
}

// submit hands doc to the serializer and maps the outcome to a response.
func (a *api) submit(doc merge.Document) (commons.Response, int) {
	merged, drained, err := a.serializer.Submit(doc)
	switch {
	case errors.Is(err, serializer.ErrEmptySubmission):
		return commons.Response{Success: false}, http.StatusOK
	case err != nil:
		return commons.Response{Error: err.Error()}, http.StatusInternalServerError
	case drained:
		return commons.Response{Success: true, Data: merged}, http.StatusOK
	}
	return commons.Response{Success: true}, http.StatusOK
}

// decodeSnapshot parses a posted document. An empty body, null and {} all decode to an empty snapshot.
func decodeSnapshot(body []byte) (merge.Document, error) {
	body = bytes.TrimSpace(body)
	switch string(body) {
	case "", "null", "{}":
		return nil, nil
	}

	var doc merge.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return doc, nil
}

type loginRequest struct {
	Name string `json:"name"`
}

// handleLogin hands out an identity. It is a stub: nothing is checked or remembered.
func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req)

	id := uuid.New()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "user-" + id.String()[:4]
	}

	a.log.WithFields(logrus.Fields{"name": name, "id": id}).Info("login")
	writeJSON(w, http.StatusOK, commons.Identity{Name: name, ID: id.String()})
}

// withCORS allows browser clients on other origins to call the API.
func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
