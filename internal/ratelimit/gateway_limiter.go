package ratelimit

// Dimension is one axis the gateway rate-limits on.
type Dimension string

const (
	DimensionGlobal Dimension = "global"
	DimensionUser   Dimension = "user"
	DimensionModel  Dimension = "model"
)

// TierMultiplier scales a user's effective rate and burst — e.g. a
// higher-tier user gets 3x the base per-user bucket.
type TierMultiplier float64

// GatewayLimiter composes independent global/user/model token-bucket
// dimensions behind one Allow call, per the Rate Limiter component: a
// request is denied if any applicable bucket is empty.
type GatewayLimiter struct {
	global    *Limiter
	perUser   *Store
	perModel  *Store
	userRate  float64
	userBurst float64
}

// NewGatewayLimiter builds a limiter with the given per-minute rates
// (converted internally to per-second) for each dimension.
func NewGatewayLimiter(globalPerMinute, userPerMinute, modelPerMinute float64) *GatewayLimiter {
	toPerSecond := func(perMinute float64) float64 { return perMinute / 60.0 }
	return &GatewayLimiter{
		global:    New(toPerSecond(globalPerMinute), 0),
		perUser:   NewStore(toPerSecond(userPerMinute), 0),
		perModel:  NewStore(toPerSecond(modelPerMinute), 0),
		userRate:  toPerSecond(userPerMinute),
		userBurst: toPerSecond(userPerMinute),
	}
}

// Allow checks the global, per-user (scaled by tierMultiplier), and
// per-model buckets. All three must admit the request.
func (g *GatewayLimiter) Allow(userID, modelID string, tierMultiplier TierMultiplier) bool {
	if !g.global.Allow() {
		return false
	}
	if userID != "" {
		mult := float64(tierMultiplier)
		if mult <= 0 {
			mult = 1
		}
		if !g.userLimiter(userID, mult).Allow() {
			return false
		}
	}
	if modelID != "" && !g.perModel.Allow(modelID) {
		return false
	}
	return true
}

func (g *GatewayLimiter) userLimiter(userID string, mult float64) *Limiter {
	g.perUser.mu.RLock()
	l, ok := g.perUser.limiters[userID]
	g.perUser.mu.RUnlock()
	if ok {
		return l
	}

	g.perUser.mu.Lock()
	defer g.perUser.mu.Unlock()
	if l, ok = g.perUser.limiters[userID]; ok {
		return l
	}
	l = New(g.userRate*mult, g.userBurst*mult)
	g.perUser.limiters[userID] = l
	return l
}
