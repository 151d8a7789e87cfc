package metrics

import "fmt"

// Bucket is a coarse visual weight for a percentage. It carries no
// structural meaning.
type Bucket uint8

const (
	BucketMinimal Bucket = iota
	BucketLow
	BucketMedium
	BucketHigh
)

// Bucket thresholds, in percent.
const (
	HighPercent   = 30
	MediumPercent = 10
	LowPercent    = 3
)

// BucketOf classifies pct.
func BucketOf(pct float64) Bucket {
	switch {
	case pct >= HighPercent:
		return BucketHigh
	case pct >= MediumPercent:
		return BucketMedium
	case pct >= LowPercent:
		return BucketLow
	default:
		return BucketMinimal
	}
}

// String returns the string representation of Bucket.
func (b Bucket) String() string {
	switch b {
	case BucketHigh:
		return "high"
	case BucketMedium:
		return "medium"
	case BucketLow:
		return "low"
	default:
		return "minimal"
	}
}

// MarshalText encodes the bucket by name.
func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (b *Bucket) UnmarshalText(text []byte) error {
	switch string(text) {
	case "high":
		*b = BucketHigh
	case "medium":
		*b = BucketMedium
	case "low":
		*b = BucketLow
	case "minimal":
		*b = BucketMinimal
	default:
		return fmt.Errorf("unknown bucket %q", text)
	}
	return nil
}
