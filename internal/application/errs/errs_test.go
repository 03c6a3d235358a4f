package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/stretchr/testify/require"
)

func TestStepError_Is_Reachable_Through_Wrapping(t *testing.T) {
	cause := errors.New("s3 down")
	err := fmt.Errorf("issuing: %w", errs.StepError{Step: "upload", Message: "Failed to upload PDF", Err: cause})

	var step errs.StepError
	require.True(t, errors.As(err, &step))
	require.Equal(t, "upload", step.Step)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "issuing: Failed to upload PDF: s3 down", err.Error())
}

func TestNotFoundError_Message(t *testing.T) {
	err := errs.NotFoundError{What: "certificate request"}
	require.Equal(t, "certificate request not found", err.Error())
}
