package server

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/emrgen/grantcore/apis/v1"
	"github.com/emrgen/grantcore/internal/codec"
	"github.com/emrgen/grantcore/internal/service"
)

const errorDomain = "grantcore"

// toStatus maps service errors to grpc status errors. Errors that already
// carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var conflict *service.VersionConflictError
	switch {
	case errors.As(err, &conflict):
		st := status.New(codes.Aborted, err.Error())
		detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason: v1.ReasonVersionConflict,
			Domain: errorDomain,
			Metadata: map[string]string{
				"document_id":        conflict.DocumentID.String(),
				v1.CurrentVersionKey: conflict.Current.String(),
			},
		})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.Is(err, service.ErrVersionConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrDocumentSealed), errors.Is(err, service.ErrDocumentDeleted):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrDimensionMismatch),
		errors.Is(err, service.ErrDegenerateVector),
		errors.Is(err, service.ErrEncoding):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, service.ErrCorruptChain), errors.Is(err, codec.ErrCorruptBlob):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logrus.Errorf("unexpected error: %v", err)
		return status.Error(codes.Internal, err.Error())
	}
}
