package scoring

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// scorePayload is the raw JSON shape the model must return.
type scorePayload struct {
	GrowthPhase string   `json:"growth_phase"`
	Conviction  int      `json:"conviction"`
	HypeRisk    string   `json:"hype_risk"`
	Evidence    []string `json:"evidence"`
	Risks       []string `json:"risks"`
}

// ParseScore validates the model output into an AccelerationScore.
// Any schema, enum, or range violation returns ErrInvalidScore; an
// invalid score is rejected by the caller and never cached.
func ParseScore(symbol, scoreType, hash, raw string) (*contracts.AccelerationScore, error) {
	var payload scorePayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", contracts.ErrInvalidScore, err)
	}

	phase := contracts.GrowthPhase(payload.GrowthPhase)
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: unknown growth_phase %q", contracts.ErrInvalidScore, payload.GrowthPhase)
	}

	hype := contracts.HypeRisk(payload.HypeRisk)
	if !hype.Valid() {
		return nil, fmt.Errorf("%w: unknown hype_risk %q", contracts.ErrInvalidScore, payload.HypeRisk)
	}

	if payload.Conviction < 0 || payload.Conviction > 100 {
		return nil, fmt.Errorf("%w: conviction %d out of [0,100]", contracts.ErrInvalidScore, payload.Conviction)
	}

	return &contracts.AccelerationScore{
		Hash:        hash,
		ScoreType:   scoreType,
		Symbol:      symbol,
		GrowthPhase: phase,
		Conviction:  payload.Conviction,
		HypeRisk:    hype,
		Evidence:    payload.Evidence,
		Risks:       payload.Risks,
		CreatedAt:   time.Now(),
	}, nil
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON in one.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
