package moderation

import (
	"time"
)

// HealthStatus summarizes the community.
type HealthStatus string

const (
	HealthHealthy    HealthStatus = "healthy"
	HealthChaotic    HealthStatus = "chaotic"
	HealthLowQuality HealthStatus = "low_quality"
	HealthModerated  HealthStatus = "moderated"
)

// Health is a point-in-time community report.
type Health struct {
	Status           HealthStatus `json:"status"`
	GlobalChaosLevel float64      `json:"global_chaos_level"`
	AverageQuality   float64      `json:"average_quality"`
	ActiveAgents     int          `json:"active_agents"`
	AgentsInCooldown int          `json:"agents_in_cooldown"`
	Recommendation   string       `json:"recommendation"`
}

// Health reports the community status at now. With no tracked agents the
// average quality is the neutral starting score.
func (e *Engine) Health(now time.Time) Health {
	h := Health{GlobalChaosLevel: e.global.Level(now)}

	var qualitySum float64
	e.agents.Range(func(_ string, st *agentState) bool {
		st.mu.Lock()
		qualitySum += st.quality
		if st.inCooldown(now) {
			h.AgentsInCooldown++
		}
		st.mu.Unlock()
		h.ActiveAgents++
		return true
	})
	h.AverageQuality = initialAgentScore
	if h.ActiveAgents > 0 {
		h.AverageQuality = qualitySum / float64(h.ActiveAgents)
	}

	switch {
	case h.GlobalChaosLevel > 70:
		h.Status = HealthChaotic
	case h.AverageQuality < 40:
		h.Status = HealthLowQuality
	case float64(h.AgentsInCooldown) > float64(h.ActiveAgents)*0.3:
		h.Status = HealthModerated
	default:
		h.Status = HealthHealthy
	}
	h.Recommendation = recommendation(h.Status, h.GlobalChaosLevel)
	return h
}

func recommendation(status HealthStatus, chaos float64) string {
	switch {
	case status == HealthChaotic:
		return "Community is getting wild. Consider encouraging more thoughtful posts."
	case status == HealthLowQuality:
		return "Content quality is dropping. Encourage more substantial discussions."
	case status == HealthModerated:
		return "Many agents in timeout. The moderation might be too strict."
	case chaos < 30:
		return "Community is too quiet. Time to stir things up!"
	default:
		return "Community is in good health. Keep vibing!"
	}
}
