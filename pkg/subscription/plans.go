package subscription

import "strings"

type Tier string
type Feature string

const (
	FreeTier    Tier = "free"
	StarterTier Tier = "starter"
	ProTier     Tier = "pro"
)

const (
	AIGenerations  Feature = "aiGenerations"
	ScheduledPosts Feature = "scheduledPosts"
	SocialAccounts Feature = "socialAccounts"
)

// Unlimited is the sentinel limit for features without a cap.
const Unlimited = -1

type Plan struct {
	ID     Tier
	Name   string
	Price  float64
	Limits map[Feature]int
}

// Plans is the deploy-time plan catalog. Limits for AIGenerations and
// ScheduledPosts are per calendar month; SocialAccounts caps concurrently
// linked accounts.
var Plans = map[Tier]Plan{
	FreeTier: {
		ID:    FreeTier,
		Name:  "Free",
		Price: 0,
		Limits: map[Feature]int{
			AIGenerations:  5,
			ScheduledPosts: 10,
			SocialAccounts: 2,
		},
	},
	StarterTier: {
		ID:    StarterTier,
		Name:  "Starter",
		Price: 9,
		Limits: map[Feature]int{
			AIGenerations:  100,
			ScheduledPosts: 100,
			SocialAccounts: 5,
		},
	},
	ProTier: {
		ID:    ProTier,
		Name:  "Pro",
		Price: 29,
		Limits: map[Feature]int{
			AIGenerations:  Unlimited,
			ScheduledPosts: Unlimited,
			SocialAccounts: Unlimited,
		},
	},
}

// GetPlan resolves a tier name to its plan, falling back to the free plan for
// unknown or empty tiers.
func GetPlan(tier string) Plan {
	t := Tier(strings.ToLower(strings.TrimSpace(tier)))
	if plan, ok := Plans[t]; ok {
		return plan
	}
	return Plans[FreeTier]
}

// FeatureLimit returns the limit of a feature on a tier. Features missing
// from a plan's limit table are treated as limit 0 (not available).
func FeatureLimit(tier string, feature Feature) int {
	limit, ok := GetPlan(tier).Limits[feature]
	if !ok {
		return 0
	}
	return limit
}

// VariantPlans builds the static variant-id to plan lookup used when webhook
// events reference a processor plan variant. Unknown variants map to free.
func VariantPlans(starterVariantID, proVariantID string) map[string]Tier {
	m := make(map[string]Tier, 2)
	if starterVariantID != "" {
		m[starterVariantID] = StarterTier
	}
	if proVariantID != "" {
		m[proVariantID] = ProTier
	}
	return m
}

// TierFromVariant resolves a processor variant id against a variant lookup,
// defaulting to the free tier when the variant is unrecognized.
func TierFromVariant(variants map[string]Tier, variantID string) Tier {
	if tier, ok := variants[strings.TrimSpace(variantID)]; ok {
		return tier
	}
	return FreeTier
}
