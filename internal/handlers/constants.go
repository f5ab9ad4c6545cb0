package handlers

const (
	bearerSchema = "Bearer "

	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Token is not valid for this family"
	ErrFamilyNotFound      = "Family not found"
	ErrInvalidFamilyID     = "Invalid family ID"
	ErrInvalidNow          = "now must be an RFC3339 timestamp"
	ErrTimeout             = "Request timed out"
	ErrInternalServerError = "Internal server error"
	ErrStarting            = "Server is starting"
)
