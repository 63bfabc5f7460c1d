package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/oapi-codegen/runtime"
)

// StreamManager fans out messages to the SSE subscribers of a topic.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for topic. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(topic string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[topic]; !ok {
		sm.subscribers[topic] = make(map[chan<- string]struct{})
	}
	sm.subscribers[topic][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[topic]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, topic)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of topic. Slow clients lose messages.
func (sm *StreamManager) Broadcast(topic string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "topic", topic)
		}
	}
}

// Subscribers reports how many clients listen on topic.
func (sm *StreamManager) Subscribers(topic string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[topic])
}

// sessionEvents streams StateDiff updates of one session. The optional watch
// query keeps only diffs touching the listed parts.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "sessionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var watch string
	if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &watch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.Sessions.Load(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}

	var filter []string
	if watch != "" {
		filter = strings.Split(watch, ",")
	}
	s.stream(w, r, id, func(msg string) bool {
		return len(filter) == 0 || diffMatches(msg, filter)
	})
}

// definitionEvents streams a "reload" event whenever definitions change.
func (s *Server) definitionEvents(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, globalTopic, func(string) bool { return true })
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string, keep func(string) bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.Logger.Debug("SSE: client subscribed", "topic", topic)

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE: client disconnected", "topic", topic)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !keep(msg) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func diffMatches(msg string, filter []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, part := range filter {
		switch strings.TrimSpace(part) {
		case "fields":
			if len(diff.Fields) > 0 {
				return true
			}
		case "step":
			if diff.CurrentStep != nil {
				return true
			}
		case "status":
			if diff.Status != nil || diff.SubmissionError != nil {
				return true
			}
		case "failures":
			if diff.Failures != nil {
				return true
			}
		}
	}
	return false
}
