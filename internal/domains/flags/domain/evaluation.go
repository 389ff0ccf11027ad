package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Evaluation is the outcome of evaluating a flag for one user.
type Evaluation struct {
	Enabled bool
	Reason  string
}

// Evaluate decides a flag for userID. flag may be nil when it does not exist.
// Rules are checked in order before the percentage rollout.
func Evaluate(flag *FeatureFlag, rules []TargetingRule, userID string, attrs map[string]string) Evaluation {
	if flag == nil {
		return Evaluation{Reason: "flag not found"}
	}
	if !flag.Enabled {
		return Evaluation{Reason: "flag disabled"}
	}
	for _, rule := range rules {
		if rule.Matches(attrs) {
			return Evaluation{Enabled: true, Reason: "targeting rule matched: " + rule.String()}
		}
	}
	if flag.RolloutPercentage >= 100 {
		return Evaluation{Enabled: true, Reason: "rollout 100%"}
	}
	bucket := Bucket(flag.Name, userID)
	if bucket < flag.RolloutPercentage {
		return Evaluation{Enabled: true, Reason: fmt.Sprintf("in rollout bucket %d < %d%%", bucket, flag.RolloutPercentage)}
	}
	return Evaluation{Reason: fmt.Sprintf("outside rollout bucket %d >= %d%%", bucket, flag.RolloutPercentage)}
}

// Bucket maps name:userID onto 0..99 using the first four bytes of its
// SHA-256 read as a signed big-endian integer.
func Bucket(name, userID string) int {
	sum := sha256.Sum256([]byte(name + ":" + userID))
	n := int(int32(binary.BigEndian.Uint32(sum[:4])))
	return ((n % 100) + 100) % 100
}
