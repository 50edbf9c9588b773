package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cinetrail/services/scheduler"
)

type jobRunner interface {
	Jobs() []scheduler.JobStatus
	RunNow(name string) (string, error)
}

// JobsHandler exposes background job status and manual runs.
type JobsHandler struct {
	Scheduler jobRunner
}

func NewJobsHandler(s jobRunner) *JobsHandler {
	return &JobsHandler{Scheduler: s}
}

func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scheduler.Jobs())
}

func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scheduler.RunNow(mux.Vars(r)["name"])
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scheduler.ErrJobRunning):
		jsonError(w, err.Error(), http.StatusConflict)
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"result": result})
	}
}
