package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// mountJobs exposes the periodic passes for an external scheduler
func (s *Server) mountJobs(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/rewards").
		Methods(http.MethodPost).
		Name("job_rewards").
		Handler(s.requireSecretOrToken(WrapHandlerFunc(s.handleRewardsJob)))
	sub.Path("/withdrawal-conditions").
		Methods(http.MethodPost).
		Name("job_withdrawal_conditions").
		Handler(s.requireAdminSecret(WrapHandlerFunc(s.handleConditionSweepJob)))
	sub.Path("/payouts").
		Methods(http.MethodPost).
		Name("job_payouts").
		Handler(s.requireAdminSecret(WrapHandlerFunc(s.handlePayoutsJob)))
}

func (s *Server) handleRewardsJob(w http.ResponseWriter, r *http.Request) error {
	result, err := s.ledger.RunRewardAccrualPass(r.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, result)
}

func (s *Server) handleConditionSweepJob(w http.ResponseWriter, r *http.Request) error {
	result, err := s.ledger.RunWithdrawalConditionSweep(r.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, result)
}

func (s *Server) handlePayoutsJob(w http.ResponseWriter, r *http.Request) error {
	result, err := s.ledger.DispatchPayouts(r.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, result)
}
