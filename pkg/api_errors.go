package pkg

import (
	"net/http"
)

// APIError describes one entry of the error taxonomy returned by the HTTP API.
type APIError struct {
	Key        string
	Message    string
	StatusCode int
}

var (
	APIErrNoData            = APIError{"NO_DATA_PROVIDED", "No data provided", http.StatusBadRequest}
	APIErrInvalidRequest    = APIError{"INVALID_REQUEST", "Invalid request", http.StatusBadRequest}
	APIErrUserCreation      = APIError{"USER_CREATION_FAILED", "User creation failed", http.StatusInternalServerError}
	APIErrUserExists        = APIError{"USER_ALREADY_EXISTS", "User already exists", http.StatusConflict}
	APIErrUserUpdate        = APIError{"USER_UPDATE_FAILED", "User update failed", http.StatusInternalServerError}
	APIErrUserNotFound      = APIError{"USER_NOT_FOUND", "User not found", http.StatusNotFound}
	APIErrUserDelete        = APIError{"USER_DELETE_FAILED", "User delete failed", http.StatusInternalServerError}
	APIErrExerciseNotFound  = APIError{"EXERCISE_NOT_FOUND", "Exercise not found", http.StatusNotFound}
	APIErrWorkoutNotFound   = APIError{"WORKOUT_NOT_FOUND", "Workout not found", http.StatusNotFound}
	APIErrItemNotFound      = APIError{"ITEM_NOT_FOUND", "Workout item not found", http.StatusNotFound}
	APIErrPRNotFound        = APIError{"PR_NOT_FOUND", "Personal record not found", http.StatusNotFound}
	APIErrStoreDeleteFailed = APIError{"STORE_DELETE_FAILED", "Delete failed", http.StatusInternalServerError}
	APIErrRateLimited       = APIError{"RATE_LIMITED", "Too many requests", http.StatusTooManyRequests}
	APIErrInternal          = APIError{"INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError}
)

// APIErrorResponse is the JSON body written for every failed request.
type APIErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details"`
}

func WriteAPIError(w http.ResponseWriter, apiErr APIError, details string) {
	WriteJSON(w, APIErrorResponse{
		Error:   apiErr.Message,
		Code:    apiErr.StatusCode,
		Details: details,
	}, apiErr.StatusCode)
}
