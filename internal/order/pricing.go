package order

import "math"

// Line is one cart line going into a quote.
type Line struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type PricedLine struct {
	Line
	Subtotal         float64 `json:"subtotal"`
	DiscountAmount   float64 `json:"discount_amount"`
	RewardPointsUsed int     `json:"reward_points_used"`
	RewardDiscount   float64 `json:"reward_discount"`
	TotalAmount      float64 `json:"total_amount"`
}

type Quote struct {
	Lines            []PricedLine `json:"lines"`
	Subtotal         float64      `json:"subtotal"`
	DiscountAmount   float64      `json:"discount_amount"`
	RewardPointsUsed int          `json:"reward_points_used"`
	RewardDiscount   float64      `json:"reward_discount"`
	TotalAmount      float64      `json:"total_amount"`
}

// Redemption describes the reward points the buyer wants to spend.
type Redemption struct {
	Requested  int
	Balance    int
	PointValue float64
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// allocate splits amount across weights proportionally; the last line takes the remainder.
// With capped set no line receives more than its own weight, which needs amount <= total.
func allocate(amount int64, weights []int64, total int64, capped bool) []int64 {
	out := make([]int64, len(weights))
	if amount <= 0 || total <= 0 {
		return out
	}
	last := len(weights) - 1
	var used int64
	for i := 0; i < last; i++ {
		share := int64(math.Round(float64(amount) * float64(weights[i]) / float64(total)))
		if capped && share > weights[i] {
			share = weights[i]
		}
		if used+share > amount {
			share = amount - used
		}
		out[i] = share
		used += share
	}
	out[last] = amount - used

	if capped && out[last] > weights[last] {
		excess := out[last] - weights[last]
		out[last] = weights[last]
		for i := 0; i < last && excess > 0; i++ {
			room := weights[i] - out[i]
			if room > excess {
				room = excess
			}
			out[i] += room
			excess -= room
		}
	}
	return out
}

// BuildQuote prices lines. couponDiscount is the already validated coupon amount for the whole
// cart. The coupon applies first; the reward discount is capped by the balance and by what is
// left to pay. Every per-line share sums exactly to the cart-level amount.
func BuildQuote(lines []Line, couponDiscount float64, r Redemption) Quote {
	q := Quote{Lines: make([]PricedLine, len(lines))}
	if len(lines) == 0 {
		return q
	}

	weights := make([]int64, len(lines))
	var subtotal int64
	for i, l := range lines {
		weights[i] = toCents(l.UnitPrice) * int64(l.Quantity)
		subtotal += weights[i]
	}

	coupon := toCents(couponDiscount)
	if coupon > subtotal {
		coupon = subtotal
	}
	if coupon < 0 {
		coupon = 0
	}
	couponShares := allocate(coupon, weights, subtotal, true)

	remaining := subtotal - coupon
	points, reward := redeem(r, remaining)

	after := make([]int64, len(lines))
	for i := range lines {
		after[i] = weights[i] - couponShares[i]
	}
	rewardShares := allocate(reward, after, remaining, true)
	pointShares := allocate(int64(points), after, remaining, false)

	for i, l := range lines {
		total := weights[i] - couponShares[i] - rewardShares[i]
		q.Lines[i] = PricedLine{
			Line:             l,
			Subtotal:         fromCents(weights[i]),
			DiscountAmount:   fromCents(couponShares[i]),
			RewardPointsUsed: int(pointShares[i]),
			RewardDiscount:   fromCents(rewardShares[i]),
			TotalAmount:      fromCents(total),
		}
	}

	q.Subtotal = fromCents(subtotal)
	q.DiscountAmount = fromCents(coupon)
	q.RewardPointsUsed = points
	q.RewardDiscount = fromCents(reward)
	q.TotalAmount = fromCents(subtotal - coupon - reward)
	return q
}

// redeem returns the points actually spent and their value in cents.
// Points beyond the balance, or worth more than remaining, are not spent.
func redeem(r Redemption, remaining int64) (int, int64) {
	points := r.Requested
	if points > r.Balance {
		points = r.Balance
	}
	if points <= 0 || r.PointValue <= 0 || remaining <= 0 {
		return 0, 0
	}
	perPoint := r.PointValue * 100
	if maxPoints := int(math.Floor(float64(remaining)/perPoint + 1e-9)); points > maxPoints {
		points = maxPoints
	}
	value := int64(math.Round(float64(points) * perPoint))
	if value > remaining {
		value = remaining
	}
	return points, value
}
