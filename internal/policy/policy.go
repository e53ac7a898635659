// Package policy decides which mapping requests are redirected to
// huge-page-backed memory.
//
// The decision is a pure function of the request and the backing file's size:
// only large, whole-file, offset-zero, file-backed mappings qualify. Anything
// else is forwarded to the real primitive untouched.
package policy

// DefaultThreshold is the minimum mapping length considered for acceleration.
const DefaultThreshold = 1 << 30 // 1 GiB

// Request describes a single mapping request as seen by the interceptor.
type Request struct {
	FD     int
	Offset int64
	Length int
}

// Reason explains a rejection. Accepted requests carry ReasonAccepted.
type Reason string

const (
	ReasonAccepted       Reason = "accepted"
	ReasonAnonymous      Reason = "anonymous mapping"
	ReasonBelowThreshold Reason = "below size threshold"
	ReasonNonZeroOffset  Reason = "non-zero offset"
	ReasonPartialFile    Reason = "length does not span whole file"
)

// Decide reports whether the request should be redirected to the huge-page
// path and why not otherwise. fileSize is the backing file's size as reported
// by a metadata query on the descriptor; callers that fail that query must
// not call Decide and must forward the request instead.
func Decide(req Request, fileSize int64, threshold int64) (bool, Reason) {
	if req.FD < 0 {
		return false, ReasonAnonymous
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if req.Length <= 0 || int64(req.Length) < threshold {
		return false, ReasonBelowThreshold
	}
	if req.Offset != 0 {
		return false, ReasonNonZeroOffset
	}
	if int64(req.Length) != fileSize {
		return false, ReasonPartialFile
	}
	return true, ReasonAccepted
}

// ShouldAccelerate is Decide without the reason.
func ShouldAccelerate(req Request, fileSize int64, threshold int64) bool {
	ok, _ := Decide(req, fileSize, threshold)
	return ok
}
