package server

import (
	"errors"
	"net/http"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/gorilla/mux"
)

func (s *Server) mountUser(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Use(s.authenticate)

	sub.Path("/balances").
		Methods(http.MethodGet).
		Name("get_balances").
		HandlerFunc(WrapHandlerFunc(s.handleGetBalances))
	sub.Path("/balances/{currency}/history").
		Methods(http.MethodGet).
		Name("get_balance_history").
		HandlerFunc(WrapHandlerFunc(s.handleGetHistory))
	sub.Path("/deposits").
		Methods(http.MethodPost).
		Name("submit_deposit").
		HandlerFunc(WrapHandlerFunc(s.handleSubmitDeposit))
	sub.Path("/deposits").
		Methods(http.MethodGet).
		Name("list_deposits").
		HandlerFunc(WrapHandlerFunc(s.handleListOwnDeposits))
	sub.Path("/plans").
		Methods(http.MethodGet).
		Name("list_plans").
		HandlerFunc(WrapHandlerFunc(s.handleListActivePlans))
	sub.Path("/stakes").
		Methods(http.MethodPost).
		Name("create_stake").
		HandlerFunc(WrapHandlerFunc(s.handleCreateStake))
	sub.Path("/stakes").
		Methods(http.MethodGet).
		Name("list_stakes").
		HandlerFunc(WrapHandlerFunc(s.handleListOwnStakes))
	sub.Path("/withdrawals").
		Methods(http.MethodPost).
		Name("request_withdrawal").
		HandlerFunc(WrapHandlerFunc(s.handleRequestWithdrawal))
	sub.Path("/withdrawals").
		Methods(http.MethodGet).
		Name("list_withdrawals").
		HandlerFunc(WrapHandlerFunc(s.handleListOwnWithdrawals))
	sub.Path("/withdrawals/{id}/condition").
		Methods(http.MethodGet).
		Name("withdrawal_condition").
		HandlerFunc(WrapHandlerFunc(s.handleWithdrawalCondition))
}

func caller(r *http.Request) (*Claims, error) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		return nil, Unauthorized(errors.New("unauthorized"))
	}
	return claims, nil
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	balances, err := s.ledger.GetBalances(r.Context(), claims.UserID)
	if err != nil {
		return err
	}
	if balances == nil {
		balances = []models.Balance{}
	}
	return WriteJSON(w, balances)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	entries, err := s.ledger.GetLedgerHistory(r.Context(), claims.UserID, mux.Vars(r)["currency"], limit, offset)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return WriteJSON(w, entries)
}

func (s *Server) handleSubmitDeposit(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.SubmitDepositRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	deposit, err := s.ledger.SubmitDeposit(r.Context(), claims.UserID, req)
	if err != nil {
		return err
	}
	return writeCreated(w, deposit)
}

func (s *Server) handleListOwnDeposits(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	deposits, err := s.ledger.ListDeposits(r.Context(), store.DepositFilter{
		UserId: claims.UserID,
		Status: r.URL.Query().Get("status"),
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

func (s *Server) handleListActivePlans(w http.ResponseWriter, r *http.Request) error {
	plans, err := s.ledger.ListPlans(r.Context(), true)
	if err != nil {
		return err
	}
	if plans == nil {
		plans = []models.StakingPlan{}
	}
	return WriteJSON(w, plans)
}

func (s *Server) handleCreateStake(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.CreateStakeRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	stake, err := s.ledger.CreateStake(r.Context(), claims.UserID, req)
	if err != nil {
		return err
	}
	return writeCreated(w, stake)
}

func (s *Server) handleListOwnStakes(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	stakes, err := s.ledger.ListStakes(r.Context(), store.StakeFilter{
		UserId: claims.UserID,
		Status: r.URL.Query().Get("status"),
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

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	var req models.WithdrawalRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return err
	}
	withdrawal, err := s.ledger.RequestWithdrawal(r.Context(), claims.UserID, req)
	if err != nil {
		return err
	}
	return writeCreated(w, withdrawal)
}

func (s *Server) handleListOwnWithdrawals(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		return err
	}
	withdrawals, err := s.ledger.ListWithdrawals(r.Context(), store.WithdrawalFilter{
		UserId: claims.UserID,
		Status: r.URL.Query().Get("status"),
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

func (s *Server) handleWithdrawalCondition(w http.ResponseWriter, r *http.Request) error {
	claims, err := caller(r)
	if err != nil {
		return err
	}
	status, err := s.ledger.WithdrawalConditionStatus(r.Context(), claims.UserID, mux.Vars(r)["id"])
	if err != nil {
		return err
	}
	return WriteJSON(w, status)
}
