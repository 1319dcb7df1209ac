package dto

import (
	"time"

	"anoa.com/coinexchange/internal/entity"
)

type AdjustBalanceRequest struct {
	Delta int64  `json:"delta" binding:"required,ne=0"`
	Note  string `json:"note" binding:"max=64"`
}

type AccountResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
	Active  bool  `json:"active"`
}

type LedgerEntryResponse struct {
	Seq          uint64    `json:"seq"`
	Delta        int64     `json:"delta"`
	BalanceAfter int64     `json:"balance_after"`
	Reason       string    `json:"reason"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToAccountResponse(u *entity.User) AccountResponse {
	return AccountResponse{UserID: u.ID, Balance: u.Balance, Active: u.Active}
}

func ToLedgerEntryResponses(entries []entity.LedgerEntry) []LedgerEntryResponse {
	res := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, LedgerEntryResponse{
			Seq:          e.Seq,
			Delta:        e.Delta,
			BalanceAfter: e.BalanceAfter,
			Reason:       string(e.Reason),
			Reference:    e.Reference,
			CreatedAt:    e.CreatedAt,
		})
	}
	return res
}
