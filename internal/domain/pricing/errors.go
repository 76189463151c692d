package pricing

import "github.com/Lokato-Mobility/service-booking/internal/platform/domain"

// Machine-readable codes attached to pricing validation errors.
const (
	CodeInvalidInterval      = "INVALID_INTERVAL"
	CodeBelowMinimumDuration = "BELOW_MINIMUM_DURATION"
	CodeHourlyNotSupported   = "HOURLY_NOT_SUPPORTED"
	CodeInvalidPolicy        = "INVALID_POLICY"
	CodeDriverNotOffered     = "DRIVER_NOT_OFFERED"
	CodeUnknownCategory      = "UNKNOWN_CATEGORY"
)

// Sentinels for errors.Is. Returned errors carry the same kind and code with a
// more specific message.
var (
	ErrInvalidInterval      = &domain.AppError{Kind: domain.KindValidation, Code: CodeInvalidInterval}
	ErrBelowMinimumDuration = &domain.AppError{Kind: domain.KindValidation, Code: CodeBelowMinimumDuration}
	ErrHourlyNotSupported   = &domain.AppError{Kind: domain.KindValidation, Code: CodeHourlyNotSupported}
	ErrInvalidPolicy        = &domain.AppError{Kind: domain.KindValidation, Code: CodeInvalidPolicy}
	ErrDriverNotOffered     = &domain.AppError{Kind: domain.KindValidation, Code: CodeDriverNotOffered}
	ErrUnknownCategory      = &domain.AppError{Kind: domain.KindValidation, Code: CodeUnknownCategory}
)
