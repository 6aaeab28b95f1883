package engine

import (
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// Evaluate returns one finding per available offer in result, in vendor
// response order. A finding is a target match when its price is one of the
// target prices and its session label contains one of the target dates.
// Evaluate is pure.
func Evaluate(result *domain.PollResult, criteria *domain.TargetCriteria) []domain.Finding {
	if result == nil || criteria == nil {
		return nil
	}

	var findings []domain.Finding
	for i := range result.Offers {
		offer := &result.Offers[i]
		if !offer.Available {
			continue
		}
		findings = append(findings, domain.Finding{
			Offer:         *offer,
			IsTargetMatch: criteria.PriceMatches(offer.Price) && criteria.DateMatches(offer.SessionLabel),
		})
	}
	return findings
}

// TargetMatches returns the findings flagged as target matches.
func TargetMatches(findings []domain.Finding) []domain.Finding {
	var out []domain.Finding
	for i := range findings {
		if findings[i].IsTargetMatch {
			out = append(out, findings[i])
		}
	}
	return out
}
