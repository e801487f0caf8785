package ratelimit

// RequestTier buckets API operations by what they cost to serve
type RequestTier string

const (
	// TierRead covers plain reads
	TierRead RequestTier = "read"
	// TierDirect covers writes where the caller supplies the ops
	TierDirect RequestTier = "direct"
	// TierProposer covers writes that call the chat model
	TierProposer RequestTier = "proposer"
)

// String returns the tier name for logs and error payloads
func (t RequestTier) String() string {
	return string(t)
}
