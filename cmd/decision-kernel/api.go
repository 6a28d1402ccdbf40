package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/eventbus"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/knowledge"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/safety"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// apiServer exposes the planning surface over HTTP. Execution stays with
// the robot-side collaborator; this server only plans, gates and records.
type apiServer struct {
	planner   *planner.HTNPlanner
	replanner *planner.Replanner
	safety    *safety.Validator
	base      *knowledge.Base
	store     *knowledge.Store
	bus       *eventbus.NATSBus
	router    *mux.Router
}

func newAPIServer(htn *planner.HTNPlanner, rp *planner.Replanner, v *safety.Validator, base *knowledge.Base, store *knowledge.Store, bus *eventbus.NATSBus) *apiServer {
	s := &apiServer{
		planner:   htn,
		replanner: rp,
		safety:    v,
		base:      base,
		store:     store,
		bus:       bus,
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *apiServer) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/plan", s.handlePlan).Methods("POST")
	api.HandleFunc("/replan", s.handleReplan).Methods("POST")
	api.HandleFunc("/validate", s.handleValidate).Methods("POST")
	api.HandleFunc("/emergency", s.handleEmergency).Methods("POST")
	api.HandleFunc("/knowledge/stats", s.handleKnowledgeStats).Methods("GET")
	api.HandleFunc("/knowledge/checkpoint", s.handleCheckpoint).Methods("POST")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

type planRequest struct {
	Goal  planner.Goal `json:"goal"`
	State *world.State `json:"state"`
}

type planResponse struct {
	Plan     planner.Plan `json:"plan"`
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason"`
}

func (s *apiServer) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decode(w, r, &req) {
		return
	}
	if req.State == nil {
		req.State = world.NewState()
	}
	plan := s.planner.Plan(req.Goal, req.State)
	if len(plan) == 0 {
		writeJSON(w, http.StatusOK, planResponse{Plan: plan, Accepted: false, Reason: "unknown goal"})
		return
	}
	accepted, reason := s.safety.Validate(plan, req.State)
	if !accepted {
		if kind, ok := s.safety.DetectEmergency(req.State); ok {
			s.publish(r.Context(), eventbus.TypeEmergency, req.Goal.Kind, string(kind))
			writeJSON(w, http.StatusOK, planResponse{
				Plan: s.safety.EmergencyPlan(kind, req.State), Accepted: true, Reason: reason,
			})
			return
		}
		s.publish(r.Context(), eventbus.TypePlanRejected, req.Goal.Kind, reason)
	}
	writeJSON(w, http.StatusOK, planResponse{Plan: plan, Accepted: accepted, Reason: reason})
}

type replanRequest struct {
	Goal          planner.Goal   `json:"goal"`
	FailedAction  planner.Action `json:"failed_action"`
	FailureReason string         `json:"failure_reason"`
	State         *world.State   `json:"state"`
	RemainingPlan planner.Plan   `json:"remaining_plan"`
}

type replanResponse struct {
	Plan        planner.Plan `json:"plan"`
	Explanation string       `json:"explanation"`
}

func (s *apiServer) handleReplan(w http.ResponseWriter, r *http.Request) {
	var req replanRequest
	if !decode(w, r, &req) {
		return
	}
	if req.State == nil {
		req.State = world.NewState()
	}
	plan, explanation := s.replanner.Replan(req.Goal, req.FailedAction, req.FailureReason, req.State, req.RemainingPlan)
	if len(plan) == 0 {
		s.publish(r.Context(), eventbus.TypeNoRecovery, req.Goal.Kind, req.FailureReason)
	} else {
		s.publish(r.Context(), eventbus.TypeRecovery, req.Goal.Kind, explanation)
	}
	writeJSON(w, http.StatusOK, replanResponse{Plan: plan, Explanation: explanation})
}

type validateRequest struct {
	Plan  planner.Plan `json:"plan"`
	State *world.State `json:"state"`
}

type validateResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

func (s *apiServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.State == nil {
		req.State = world.NewState()
	}
	accepted, reason := s.safety.Validate(req.Plan, req.State)
	writeJSON(w, http.StatusOK, validateResponse{Accepted: accepted, Reason: reason})
}

type emergencyRequest struct {
	State *world.State `json:"state"`
}

type emergencyResponse struct {
	Detected bool         `json:"detected"`
	Kind     string       `json:"kind,omitempty"`
	Plan     planner.Plan `json:"plan,omitempty"`
}

func (s *apiServer) handleEmergency(w http.ResponseWriter, r *http.Request) {
	var req emergencyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.State == nil {
		req.State = world.NewState()
	}
	kind, ok := s.safety.DetectEmergency(req.State)
	if !ok {
		writeJSON(w, http.StatusOK, emergencyResponse{Detected: false})
		return
	}
	writeJSON(w, http.StatusOK, emergencyResponse{
		Detected: true,
		Kind:     string(kind),
		Plan:     s.safety.EmergencyPlan(kind, req.State),
	})
}

func (s *apiServer) handleKnowledgeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"failures":  s.base.FailureStatistics(),
		"behaviors": s.base.BehaviorStatistics(),
	})
}

func (s *apiServer) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Save(r.Context(), s.base); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) publish(ctx context.Context, eventType, goalKind, reason string) {
	if s.bus == nil {
		return
	}
	evt := eventbus.DecisionEvent{
		EventID:   eventbus.NewEventID("dk_", time.Now()),
		Source:    "decision-kernel-api",
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		GoalKind:  goalKind,
		Reason:    reason,
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Printf("[API] event publish failed: %v", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] response encode failed: %v", err)
	}
}
