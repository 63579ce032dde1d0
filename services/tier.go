package services

import (
	"sort"

	"lifedrop-backend/models"

	"gorm.io/gorm"
)

// DefaultTier is returned when no tier definitions are configured.
var DefaultTier = models.TierDefinition{Name: "Standard", MinPoints: 0, DiscountPercent: 0}

// ClassifyTier maps a point balance to the highest tier whose MinPoints
// does not exceed it. The input slice may be unsorted. It always returns
// a tier: empty configuration falls back to DefaultTier, and a balance
// below every threshold falls back to the lowest configured tier.
func ClassifyTier(points int, defs []models.TierDefinition) models.TierDefinition {
	if len(defs) == 0 {
		return DefaultTier
	}

	sorted := make([]models.TierDefinition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })

	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].MinPoints <= points {
			return sorted[i]
		}
	}
	return sorted[0]
}

// LoadTiers fetches the configured tier definitions. Callers pass the
// result to ClassifyTier; a missing table or empty result is not an error.
func LoadTiers(db *gorm.DB) ([]models.TierDefinition, error) {
	var defs []models.TierDefinition
	if err := db.Order("min_points ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

// TierFor classifies a balance against the stored definitions.
func TierFor(db *gorm.DB, points int) (models.TierDefinition, error) {
	defs, err := LoadTiers(db)
	if err != nil {
		return DefaultTier, err
	}
	return ClassifyTier(points, defs), nil
}
