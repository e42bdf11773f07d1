package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/access-git/internal/service"
)

// TopicHandler serves the topic taxonomy of one organization.
type TopicHandler struct {
	topics *service.TopicService
	logger *slog.Logger
}

func NewTopicHandler(topics *service.TopicService, logger *slog.Logger) *TopicHandler {
	return &TopicHandler{topics: topics, logger: logger}
}

// HandleList counts topics over the repositories the credential can see.
//
// HTTP: GET /api/organizations/{org}/topics
// RESPONSE: {"topics": [{"name": "backend", "count": 3}], "miscellaneousCount": 2}
func (h *TopicHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.topics.List(r.Context(), credential(r), param(r, "org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type assignTopicRequest struct {
	Topic string `json:"topic"`
}

type syncResponse struct {
	Message string `json:"message"`
	Synced  any    `json:"synced_repos,omitempty"`
}

// HandleAssign labels every repository whose name contains the topic.
//
// HTTP: POST /api/organizations/{org}/topics
// REQUEST BODY: {"topic": "backend"}
// RESPONSE: 201 {"message", "synced_repos"}, or 200 {"message"} when nothing matched.
func (h *TopicHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignTopicRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.topics.Assign(r.Context(), credential(r), param(r, "org"), req.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(res.Synced) == 0 {
		writeMessage(w, http.StatusOK, res.Message)
		return
	}
	writeJSON(w, http.StatusCreated, syncResponse{Message: res.Message, Synced: res.Synced})
}

// HandleSync records repositories the store has not seen yet.
//
// HTTP: POST /api/organizations/{org}/topics/sync
// RESPONSE: 201 {"message", "synced_repos"}, or 200 {"message"} when up to date.
func (h *TopicHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.topics.Sync(r.Context(), credential(r), param(r, "org"))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(res.Synced) == 0 {
		writeMessage(w, http.StatusOK, res.Message)
		return
	}
	writeJSON(w, http.StatusCreated, syncResponse{Message: res.Message, Synced: res.Synced})
}

// HandleDelete removes a topic from every repository carrying it.
//
// HTTP: DELETE /api/organizations/{org}/topics/{topic}
func (h *TopicHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	// chi routes on RawPath when the request carried escapes, leaving the
	// param still encoded; otherwise it is already decoded.
	topic := param(r, "topic")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(topic); err == nil {
			topic = u
		}
	}
	n, err := h.topics.Delete(r.Context(), param(r, "org"), topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Successfully removed topic '%s' from %d repositories.", topic, n))
}

// HandleRepositories lists the repositories of one topic with their top
// contributors.
//
// HTTP: GET /api/organizations/{org}/repositories?topic=backend
func (h *TopicHandler) HandleRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.topics.Repositories(r.Context(), credential(r), param(r, "org"), r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}
