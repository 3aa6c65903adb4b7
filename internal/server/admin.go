package server

import (
	"net/http"

	"staking-ledger-go/internal/api"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/gorilla/mux"
)

func (s *Server) mountAdmin(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Use(s.authenticate, s.requireAdmin)

	sub.Path("/deposits").
		Methods(http.MethodGet).
		Name("admin_list_deposits").
		HandlerFunc(WrapHandlerFunc(s.handleAdminListDeposits))
	sub.Path("/deposits/{id}/{action:approve|decline|confirm|fail}").
		Methods(http.MethodPost).
		Name("admin_review_deposit").
		HandlerFunc(WrapHandlerFunc(s.handleReviewDeposit))
	sub.Path("/users/{userId}/deposits").
		Methods(http.MethodPost).
		Name("admin_create_deposit").
		HandlerFunc(WrapHandlerFunc(s.handleAdminCreateDeposit))
	sub.Path("/users/{userId}/stakes").
		Methods(http.MethodPost).
		Name("admin_create_stake").
		HandlerFunc(WrapHandlerFunc(s.handleAdminCreateStake))
	sub.Path("/users/{userId}/balances/{currency}").
		Methods(http.MethodPut).
		Name("admin_adjust_balance").
		HandlerFunc(WrapHandlerFunc(s.handleAdjustBalance))
	sub.Path("/stakes").
		Methods(http.MethodGet).
		Name("admin_list_stakes").
		HandlerFunc(WrapHandlerFunc(s.handleAdminListStakes))
	sub.Path("/stakes/{id}/cancel").
		Methods(http.MethodPost).
		Name("admin_cancel_stake").
		HandlerFunc(WrapHandlerFunc(s.handleAdminCancelStake))
	sub.Path("/plans").
		Methods(http.MethodGet).
		Name("admin_list_plans").
		HandlerFunc(WrapHandlerFunc(s.handleAdminListPlans))
	sub.Path("/plans").
		Methods(http.MethodPost).
		Name("admin_create_plan").
		HandlerFunc(WrapHandlerFunc(s.handleCreatePlan))
	sub.Path("/plans/{id}").
		Methods(http.MethodPut).
		Name("admin_update_plan").
		HandlerFunc(WrapHandlerFunc(s.handleUpdatePlan))
	sub.Path("/plans/{id}").
		Methods(http.MethodDelete).
		Name("admin_delete_plan").
		HandlerFunc(WrapHandlerFunc(s.handleDeletePlan))
	sub.Path("/withdrawals").
		Methods(http.MethodGet).
		Name("admin_list_withdrawals").
		HandlerFunc(WrapHandlerFunc(s.handleAdminListWithdrawals))
	sub.Path("/withdrawals/{id}/approve").
		Methods(http.MethodPost).
		Name("admin_approve_withdrawal").
		HandlerFunc(WrapHandlerFunc(s.handleApproveWithdrawal))
	sub.Path("/withdrawals/{id}/reject").
		Methods(http.MethodPost).
		Name("admin_reject_withdrawal").
		HandlerFunc(WrapHandlerFunc(s.handleRejectWithdrawal))
	sub.Path("/withdrawals/{id}/process").
		Methods(http.MethodPost).
		Name("admin_process_withdrawal").
		HandlerFunc(WrapHandlerFunc(s.handleProcessWithdrawal))
}

func (s *Server) handleAdminListDeposits(w http.ResponseWriter, r *http.Request) error {
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	deposits, err := s.ledger.ListDeposits(r.Context(), store.DepositFilter{
		UserId: q.Get("user_id"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	if deposits == nil {
		deposits = []models.Deposit{}
	}
	return WriteJSON(w, deposits)
}

func (s *Server) handleReviewDeposit(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.ReviewRequest
	if err := parseOptionalJSON(r.Body, &req); err != nil {
		return err
	}

	vars := mux.Vars(r)
	id := vars["id"]
	var deposit *models.Deposit
	switch vars["action"] {
	case "approve":
		deposit, err = s.ledger.ApproveDeposit(r.Context(), id, claims.UserID, req.Notes)
	case "decline":
		deposit, err = s.ledger.DeclineDeposit(r.Context(), id, claims.UserID, req.Notes)
	case "confirm":
		deposit, err = s.ledger.ConfirmDeposit(r.Context(), id, claims.UserID)
	case "fail":
		deposit, err = s.ledger.FailDeposit(r.Context(), id, claims.UserID, req.Notes)
	}
	if err != nil {
		return err
	}
	return WriteJSON(w, deposit)
}

func (s *Server) handleAdminCreateDeposit(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.AdminDepositRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	req.UserId = mux.Vars(r)["userId"]
	deposit, err := s.ledger.AdminCreateDeposit(r.Context(), claims.UserID, req)
	if err != nil {
		return err
	}
	return writeCreated(w, deposit)
}

func (s *Server) handleAdminCreateStake(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.CreateStakeRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	stake, err := s.ledger.AdminCreateStake(r.Context(), claims.UserID, mux.Vars(r)["userId"], req)
	if err != nil {
		return err
	}
	return writeCreated(w, stake)
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.AdjustBalanceRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	vars := mux.Vars(r)
	balance, err := s.ledger.AdjustBalance(r.Context(), claims.UserID, vars["userId"], vars["currency"], req)
	if err != nil {
		return err
	}
	return WriteJSON(w, balance)
}

func (s *Server) handleAdminListStakes(w http.ResponseWriter, r *http.Request) error {
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	stakes, err := s.ledger.ListStakes(r.Context(), store.StakeFilter{
		UserId: q.Get("user_id"),
		PlanId: q.Get("plan_id"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	if stakes == nil {
		stakes = []models.Stake{}
	}
	return WriteJSON(w, stakes)
}

func (s *Server) handleAdminCancelStake(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.CancelStakeRequest
	if err := parseOptionalJSON(r.Body, &req); err != nil {
		return err
	}
	stake, err := s.ledger.CancelStake(r.Context(), mux.Vars(r)["id"], api.Actor{Id: claims.UserID, Admin: true}, req.Reason)
	if err != nil {
		return err
	}
	return WriteJSON(w, stake)
}

func (s *Server) handleAdminListPlans(w http.ResponseWriter, r *http.Request) error {
	plans, err := s.ledger.ListPlans(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		return err
	}
	if plans == nil {
		plans = []models.StakingPlan{}
	}
	return WriteJSON(w, plans)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.PlanRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	plan, err := s.ledger.CreatePlan(r.Context(), claims.UserID, req)
	if err != nil {
		return err
	}
	return writeCreated(w, plan)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.PlanRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	plan, err := s.ledger.UpdatePlan(r.Context(), claims.UserID, mux.Vars(r)["id"], req)
	if err != nil {
		return err
	}
	return WriteJSON(w, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeletePlan(r.Context(), claims.UserID, mux.Vars(r)["id"]); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleAdminListWithdrawals(w http.ResponseWriter, r *http.Request) error {
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	withdrawals, err := s.ledger.ListWithdrawals(r.Context(), store.WithdrawalFilter{
		UserId: q.Get("user_id"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	if withdrawals == nil {
		withdrawals = []models.Withdrawal{}
	}
	return WriteJSON(w, withdrawals)
}

func (s *Server) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.ApproveWithdrawalRequest
	if err := parseOptionalJSON(r.Body, &req); err != nil {
		return err
	}
	approval, err := s.ledger.ApproveWithdrawal(r.Context(), mux.Vars(r)["id"], claims.UserID, req)
	if err != nil {
		return err
	}
	return WriteJSON(w, approval)
}

func (s *Server) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.ReviewRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	withdrawal, err := s.ledger.RejectWithdrawal(r.Context(), mux.Vars(r)["id"], claims.UserID, req.Notes)
	if err != nil {
		return err
	}
	return WriteJSON(w, withdrawal)
}

func (s *Server) handleProcessWithdrawal(w http.ResponseWriter, r *http.Request) error {
	withdrawal, err := s.ledger.ProcessWithdrawal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return err
	}
	return WriteJSON(w, withdrawal)
}
