package analytics

import "math"

// RiskRewardInput holds the values entered in the position calculator.
type RiskRewardInput struct {
	Entry          float64 `json:"entry"`
	StopLoss       float64 `json:"stopLoss"`
	Target         float64 `json:"target"`
	RiskAmount     float64 `json:"riskAmount"`
	AccountBalance float64 `json:"accountBalance"`
}

// RiskReward is the calculator output.
type RiskReward struct {
	Risk               float64 `json:"risk"`   // per unit
	Reward             float64 `json:"reward"` // per unit
	Ratio              float64 `json:"ratio"`
	PositionSize       float64 `json:"positionSize"`
	NotionalValue      float64 `json:"notionalValue"`
	PotentialProfit    float64 `json:"potentialProfit"`
	PotentialLoss      float64 `json:"potentialLoss"`
	AccountRiskPercent float64 `json:"accountRiskPercent"`
	RiskBarWidth       float64 `json:"riskBarWidth"`
	RewardBarWidth     float64 `json:"rewardBarWidth"`
}

// CalculateRiskReward sizes a position so that hitting the stop loses
// exactly RiskAmount, and reports the resulting reward profile. Zero or
// degenerate inputs produce zero outputs; with no risk and no reward the bar
// widths split 50/50.
func CalculateRiskReward(in RiskRewardInput) RiskReward {
	entry := finite(in.Entry)
	risk := math.Abs(entry - finite(in.StopLoss))
	reward := math.Abs(finite(in.Target) - entry)
	riskAmount := finite(in.RiskAmount)
	balance := finite(in.AccountBalance)

	out := RiskReward{Risk: risk, Reward: reward, RiskBarWidth: 50, RewardBarWidth: 50}
	if risk > 0 {
		out.Ratio = reward / risk
	}
	if riskAmount > 0 && risk > 0 {
		out.PositionSize = riskAmount / risk
	}
	out.NotionalValue = out.PositionSize * entry
	out.PotentialProfit = out.PositionSize * reward
	out.PotentialLoss = out.PositionSize * risk
	if balance > 0 {
		out.AccountRiskPercent = riskAmount / balance * 100
	}
	if total := risk + reward; total > 0 {
		out.RiskBarWidth = risk / total * 100
		out.RewardBarWidth = reward / total * 100
	}
	return out
}
