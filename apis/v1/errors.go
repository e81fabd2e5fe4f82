package v1

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// ReasonVersionConflict is the ErrorInfo reason of a stale write.
	ReasonVersionConflict = "VERSION_CONFLICT"
	// CurrentVersionKey holds the head version id in the ErrorInfo metadata.
	CurrentVersionKey = "current_version_id"
)

// CurrentVersion extracts the head version id from a conflict error.
func CurrentVersion(err error) (string, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return "", false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.Reason == ReasonVersionConflict {
			id, ok := info.Metadata[CurrentVersionKey]
			return id, ok
		}
	}
	return "", false
}
