package controllers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/registrar/internal/auth"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/http/helpers"
	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
	"github.com/dropDatabas3/registrar/internal/validation"
)

// Auth maneja /api/auth.
type Auth struct {
	Service auth.Service
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (c *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case !validation.Username(req.Username):
		fail(w, r, invalid("username must be 3-50 characters of letters, digits or underscore"))
		return
	case !validation.Email(req.Email):
		fail(w, r, invalid("email is not valid"))
		return
	case req.Password == "":
		fail(w, r, invalid("password is required"))
		return
	}
	var role types.Role
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := types.ParseRole(req.Role)
		if err != nil {
			fail(w, r, invalid("role must be student or faculty"))
			return
		}
		role = parsed
	}

	u, err := c.Service.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	}, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusCreated, "User registered successfully", u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		fail(w, r, invalid("email and password are required"))
		return
	}
	ch, err := c.Service.Login(r.Context(), req.Email, req.Password, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "OTP sent to your email", ch)
}

type verifyOTPRequest struct {
	UserID        string `json:"userId"`
	OTP           string `json:"otp"`
	TempSessionID string `json:"tempSessionId"`
	TempToken     string `json:"tempToken"`
}

func (c *Auth) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	switch {
	case !validation.ID(req.UserID) || !validation.ID(req.TempSessionID):
		fail(w, r, invalid("userId and tempSessionId are required"))
		return
	case !validation.OTP(req.OTP):
		fail(w, r, invalid("otp must be 6 digits"))
		return
	}
	res, err := c.Service.VerifyOTP(r.Context(), auth.VerifyOTPInput{
		UserID:        req.UserID,
		OTP:           req.OTP,
		TempSessionID: req.TempSessionID,
		TempToken:     req.TempToken,
	}, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Login successful", res)
}

type resendOTPRequest struct {
	UserID        string `json:"userId"`
	TempSessionID string `json:"tempSessionId"`
}

func (c *Auth) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if !validation.ID(req.UserID) || !validation.ID(req.TempSessionID) {
		fail(w, r, invalid("userId and tempSessionId are required"))
		return
	}
	if err := c.Service.ResendOTP(r.Context(), req.UserID, req.TempSessionID, helpers.Meta(r)); err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "New OTP sent to your email", nil)
}

func (c *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	p := mw.MustGetPrincipal(r.Context())
	if err := c.Service.Logout(r.Context(), *p, helpers.Meta(r)); err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Logged out successfully", nil)
}

func (c *Auth) Me(w http.ResponseWriter, r *http.Request) {
	p := mw.MustGetPrincipal(r.Context())
	u, err := c.Service.Profile(r.Context(), p.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, u)
}
