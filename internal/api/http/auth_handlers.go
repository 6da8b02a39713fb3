package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-mocktest/internal/auth"
	authmw "github.com/mind-engage/mindengage-mocktest/internal/auth/middleware"
)

var validate = validator.New()

type otpRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type otpVerifyRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,number"`
}

// RequestOTPHandler issues a login code. Delivery is mocked, so the code is
// returned in the response.
func RequestOTPHandler(otp *auth.OTPService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "phone required")
			return
		}
		phone, code, err := otp.Issue(r.Context(), req.Phone)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"phone": phone, "code": code})
	}
}

// VerifyOTPHandler exchanges a valid code for a bearer token.
func VerifyOTPHandler(otp *auth.OTPService, a *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpVerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "phone and 6-digit code required")
			return
		}
		phone, role, err := otp.Verify(r.Context(), req.Phone, req.Code)
		if errors.Is(err, auth.ErrOTPInvalid) {
			writeErrorMsg(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		tok, err := a.IssueJWT(phone, role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token": tok,
			"token_type":   "Bearer",
			"phone":        phone,
			"role":         role,
		})
	}
}
