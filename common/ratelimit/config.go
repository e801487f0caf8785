package ratelimit

// TierConfig is the per-user budget for one request tier
type TierConfig struct {
	Tier          RequestTier
	Limit         int64
	WindowSeconds int
}

// DefaultTierConfigs holds the per-tier budgets. Proposer requests
// each cost up to two chat completions, so that tier is an order of
// magnitude tighter than direct writes.
var DefaultTierConfigs = map[RequestTier]TierConfig{
	TierRead: {
		Tier:          TierRead,
		Limit:         300,
		WindowSeconds: 60,
	},
	TierDirect: {
		Tier:          TierDirect,
		Limit:         60,
		WindowSeconds: 60,
	},
	TierProposer: {
		Tier:          TierProposer,
		Limit:         10,
		WindowSeconds: 60,
	},
}

// GlobalConfig is the service-wide ceiling shared by all users
type GlobalConfig struct {
	Limit         int64
	WindowSeconds int
}

// DefaultGlobalConfig caps total traffic at 600 requests per minute
var DefaultGlobalConfig = GlobalConfig{
	Limit:         600,
	WindowSeconds: 60,
}

// GetLimitForTier returns the request budget for a tier. Unknown
// tiers get the most restrictive budget.
func GetLimitForTier(tier RequestTier) int64 {
	if cfg, ok := DefaultTierConfigs[tier]; ok {
		return cfg.Limit
	}
	return DefaultTierConfigs[TierProposer].Limit
}

// GetWindowForTier returns the window length for a tier in seconds
func GetWindowForTier(tier RequestTier) int {
	if cfg, ok := DefaultTierConfigs[tier]; ok {
		return cfg.WindowSeconds
	}
	return DefaultTierConfigs[TierProposer].WindowSeconds
}
