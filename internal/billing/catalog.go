package billing

import (
	"strings"

	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// Catalog is the static price-id to plan mapping injected at construction.
type Catalog struct {
	byPrice map[string]enums.SubscriptionPlan
	byPlan  map[enums.SubscriptionPlan]string
}

// NewCatalog builds the catalog from the configured Stripe price ids.
func NewCatalog(cfg config.StripeConfig) *Catalog {
	c := &Catalog{
		byPrice: map[string]enums.SubscriptionPlan{},
		byPlan:  map[enums.SubscriptionPlan]string{},
	}
	c.add(cfg.BasicPriceID, enums.SubscriptionPlanBasic)
	c.add(cfg.PremiumPriceID, enums.SubscriptionPlanPremium)
	return c
}

func (c *Catalog) add(priceID string, plan enums.SubscriptionPlan) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return
	}
	c.byPrice[priceID] = plan
	c.byPlan[plan] = priceID
}

// PlanForPrice resolves the plan for a Stripe price id, Unknown when unmapped.
func (c *Catalog) PlanForPrice(priceID string) enums.SubscriptionPlan {
	if plan, ok := c.byPrice[strings.TrimSpace(priceID)]; ok {
		return plan
	}
	return enums.SubscriptionPlanUnknown
}

// HasPrice reports whether the price id belongs to the catalog.
func (c *Catalog) HasPrice(priceID string) bool {
	_, ok := c.byPrice[strings.TrimSpace(priceID)]
	return ok
}

// PlanEntry is one sellable tier in the catalog.
type PlanEntry struct {
	Plan    enums.SubscriptionPlan `json:"plan"`
	PriceID string                 `json:"price_id"`
}

// Entries lists the configured tiers in a stable order.
func (c *Catalog) Entries() []PlanEntry {
	entries := make([]PlanEntry, 0, len(c.byPlan))
	for _, plan := range []enums.SubscriptionPlan{
		enums.SubscriptionPlanBasic,
		enums.SubscriptionPlanPremium,
	} {
		if priceID, ok := c.byPlan[plan]; ok {
			entries = append(entries, PlanEntry{Plan: plan, PriceID: priceID})
		}
	}
	return entries
}
