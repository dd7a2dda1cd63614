package notification

import (
	"net/http"

	"github.com/kazz187/deadlinebot/internal/orchestrator"
	"github.com/kazz187/deadlinebot/internal/scheduler"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// Server exposes the admin surface: manual trigger and run status.
type Server struct {
	orch  *orchestrator.Orchestrator
	sched *scheduler.Scheduler
}

func NewServer(orch *orchestrator.Orchestrator, sched *scheduler.Scheduler) *Server {
	return &Server{orch: orch, sched: sched}
}

func (s *Server) HandleTrigger(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := s.orch.Run(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, report)
}

type statusResponse struct {
	Scheduler scheduler.Status     `json:"scheduler"`
	LastRun   *orchestrator.Report `json:"last_run,omitempty"`
}

func (s *Server) HandleStatus(rw http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), statusResponse{
		Scheduler: s.sched.Status(),
		LastRun:   s.orch.LastReport(),
	})
}
