package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
	"github.com/biograph/insights/internal/pkg/apperrors"
	"github.com/biograph/insights/internal/pkg/logger"
)

// HandleAPIError maps service errors to status codes and error responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorResponse(err)

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Int("status", status).
		Str("code", string(detail.Code)).
		Msg("Request failed")

	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

func errorResponse(err error) (int, *dto.ErrorDetail) {
	var (
		cyclic   *curriculum.CyclicPrerequisiteError
		dangling *curriculum.DanglingReferenceError
		unmet    *curriculum.PrerequisiteNotSatisfiedError
		illegal  *curriculum.IllegalTransitionError
		unknownD *curriculum.UnknownDisciplineError
		unknownS *curriculum.UnknownStudentError
		custom   *apperrors.CustomError
	)

	switch {
	// Checked first: it wraps whatever made the snapshot unavailable.
	case errors.Is(err, apperrors.ErrSnapshotUnavailable):
		return http.StatusServiceUnavailable,
			dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Curriculum data is temporarily unavailable")

	case errors.As(err, &cyclic):
		return http.StatusConflict,
			dto.NewErrorDetail(dto.ErrorCodeCyclicPrerequisite, err.Error()).
				WithDetails(gin.H{"cycle": cyclic.Cycle})
	case errors.As(err, &dangling):
		return http.StatusUnprocessableEntity,
			dto.NewErrorDetail(dto.ErrorCodeDanglingReference, err.Error()).
				WithDetails(gin.H{"refs": dangling.Refs})
	case errors.As(err, &unmet):
		return http.StatusConflict,
			dto.NewErrorDetail(dto.ErrorCodePrerequisiteNotSatisfied, "Prerequisites not completed").
				WithDetails(gin.H{"disciplineId": unmet.DisciplineID, "unmet": unmet.Unmet})
	case errors.As(err, &illegal):
		return http.StatusConflict,
			dto.NewErrorDetail(dto.ErrorCodeIllegalTransition, err.Error()).
				WithDetails(gin.H{"from": illegal.From.Wire(), "to": illegal.To.Wire()})
	case errors.As(err, &unknownD):
		return http.StatusNotFound,
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Discipline not found").
				WithDetails(gin.H{"disciplineIds": unknownD.IDs})
	case errors.As(err, &unknownS):
		return http.StatusNotFound,
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Student not found").
				WithDetails(gin.H{"studentId": unknownS.ID})
	case errors.Is(err, curriculum.ErrInvalidStatus):
		return http.StatusBadRequest,
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Status must be one of pendente, cursando, concluido").
				WithField("status")

	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error())
		if errors.As(err, &custom) && custom.Details != nil {
			detail = detail.WithDetails(custom.Details)
		}
		return http.StatusBadRequest, detail
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, err.Error())
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrInvalidFormat):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrResourceNotFound), errors.Is(err, academicapi.ErrNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, err.Error())

	case errors.Is(err, apperrors.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, err.Error())
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return http.StatusBadGateway,
			dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, "Academic records API request failed")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout,
			dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Request timed out")
	default:
		return http.StatusInternalServerError,
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
