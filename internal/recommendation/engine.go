package recommendation

import (
	"math"
	"sort"
	"strings"
	"time"

	"papelpos/backend/internal/domain"
)

// Engine suggests one extra product for the active cart from products that
// earlier sales paired with the current lines.
type Engine struct {
	minConfidence float64
	maxSales      int
}

func NewEngine() *Engine {
	return &Engine{
		minConfidence: 0.35,
		maxSales:      300,
	}
}

// Suggest scores every product that co-occurred with a cart product in the
// most recent sales. sales must be newest first. It returns nil when no
// candidate clears the confidence floor.
func (e *Engine) Suggest(lines []domain.CartLine, products []domain.Product, sales []domain.Sale, at time.Time) *domain.Suggestion {
	if len(lines) == 0 {
		return nil
	}

	inCart := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		inCart[line.ProductID] = struct{}{}
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	if len(sales) > e.maxSales {
		sales = sales[:e.maxSales]
	}

	pairCount := make(map[int64]int)
	related := 0
	for _, sale := range sales {
		if !containsAny(sale.Items, inCart) {
			continue
		}
		related++
		seen := make(map[int64]struct{}, len(sale.Items))
		for _, item := range sale.Items {
			if _, ok := inCart[item.ProductID]; ok {
				continue
			}
			if _, dup := seen[item.ProductID]; dup {
				continue
			}
			seen[item.ProductID] = struct{}{}
			pairCount[item.ProductID]++
		}
	}
	if related == 0 {
		return nil
	}

	var best *domain.Suggestion
	bestScore := 0.0
	for id, count := range pairCount {
		product, ok := byID[id]
		if !ok || product.Price <= 0 {
			continue
		}
		if product.TrackInventory && product.Stock <= 0 {
			continue
		}

		pairAffinity := clamp(float64(count)/float64(related), 0, 1)
		marginScore := clamp(marginRate(product)/0.40, 0, 1)
		stockScore := 1.0
		if product.TrackInventory {
			stockScore = clamp(float64(product.Stock)/50.0, 0, 1)
		}
		timeRelevance := categoryHourRelevance(product.Category, at.Hour())

		score :=
			0.45*pairAffinity +
				0.25*marginScore +
				0.20*stockScore +
				0.10*timeRelevance

		confidence := clamp(score, 0, 1)
		if confidence < e.minConfidence {
			continue
		}
		if confidence > bestScore || (confidence == bestScore && best != nil && id < best.ProductID) {
			bestScore = confidence
			best = &domain.Suggestion{
				ProductID:  product.ID,
				Code:       product.Code,
				Name:       product.Name,
				Price:      product.Price,
				ReasonCode: deriveReason(pairAffinity, marginScore, stockScore, timeRelevance),
				Confidence: round2(confidence),
			}
		}
	}
	return best
}

func containsAny(items []domain.SaleItem, set map[int64]struct{}) bool {
	for _, item := range items {
		if _, ok := set[item.ProductID]; ok {
			return true
		}
	}
	return false
}

func marginRate(p domain.Product) float64 {
	if p.Price <= 0 || p.Cost >= p.Price {
		return 0
	}
	return float64(p.Price-p.Cost) / float64(p.Price)
}

func deriveReason(pairAffinity float64, marginScore float64, stockScore float64, timeRelevance float64) string {
	type reasonWeight struct {
		code  string
		value float64
	}

	reasons := []reasonWeight{
		{code: "often_bought_together", value: pairAffinity},
		{code: "high_margin_boost", value: marginScore},
		{code: "healthy_stock", value: stockScore},
		{code: "time_slot_match", value: timeRelevance},
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].value > reasons[j].value
	})
	return reasons[0].code
}

// School supplies sell in the morning rush before classes.
func categoryHourRelevance(category string, hour int) float64 {
	switch strings.ToLower(category) {
	case "cuadernos", "escritura", "útiles":
		if hour >= 6 && hour <= 11 {
			return 0.90
		}
		if hour >= 14 && hour <= 18 {
			return 0.70
		}
	}
	return 0.55
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
