package referral

import "time"

// Referral records that ReferredUserID signed up with ReferrerID's code.
type Referral struct {
	ID             string    `json:"id" db:"id"`
	ReferrerID     string    `json:"referrerId" db:"referrer_id"`
	ReferredUserID string    `json:"referredUserId" db:"referred_user_id"`
	Code           string    `json:"code" db:"code"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
