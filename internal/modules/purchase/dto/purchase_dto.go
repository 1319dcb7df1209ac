package dto

import (
	"sort"
	"time"

	"anoa.com/coinexchange/internal/entity"
)

type CreatePurchaseRequest struct {
	Coins int64  `json:"coins" binding:"required,min=1"`
	Name  string `json:"name" binding:"required,max=120"`
	Phone string `json:"phone" binding:"required,max=40"`
}

type PackageResponse struct {
	Coins      int64 `json:"coins"`
	PriceCents int64 `json:"price_cents"`
}

type PurchaseResponse struct {
	ID         uint64     `json:"id"`
	UserID     int64      `json:"user_id"`
	Coins      int64      `json:"coins"`
	PriceCents int64      `json:"price_cents"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func ToPurchaseResponse(p *entity.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		Coins:      p.Coins,
		PriceCents: p.PriceCents,
		Name:       p.Name,
		Phone:      p.Phone,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		ResolvedAt: p.ResolvedAt,
	}
}

func ToPurchaseResponses(purchases []entity.Purchase) []PurchaseResponse {
	res := make([]PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		res = append(res, ToPurchaseResponse(&purchases[i]))
	}
	return res
}

// ToPackageResponses lists packages from smallest to largest.
func ToPackageResponses(packages map[int64]int64) []PackageResponse {
	res := make([]PackageResponse, 0, len(packages))
	for coins, price := range packages {
		res = append(res, PackageResponse{Coins: coins, PriceCents: price})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Coins < res[j].Coins })
	return res
}
