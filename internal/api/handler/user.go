package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

// UserHandler handles account and role requests
type UserHandler struct {
	authService *service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{
		authService: authService,
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup creates an account and returns a token
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	token, user, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.RespondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles user login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, authResponse{Token: token, User: user})
}

// Me returns the caller's profile
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Profile(r.Context(), a)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, user)
}

type permissionsResponse struct {
	Roles       []models.UserRole        `json:"roles"`
	PrimaryRole models.UserRole          `json:"primary_role"`
	Permissions []permissions.Permission `json:"permissions"`
}

// MyPermissions returns the caller's roles and the capabilities they grant
func (h *UserHandler) MyPermissions(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	roles := a.Roles.Slice()
	respondJSON(w, permissionsResponse{
		Roles:       roles,
		PrimaryRole: permissions.GetUserPrimaryRole(roles),
		Permissions: permissions.GetAllPermissions(roles),
	})
}

// UpdateMe edits the caller's profile
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req models.ProfileUpdateRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), a, req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, user)
}

// DeleteMe removes the caller's account
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), a); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers lists all users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	users, err := h.authService.ListUsers(r.Context(), a)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, users)
}

// Ban and Unban toggle the ban flag of the user in the path
func (h *UserHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

func (h *UserHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h *UserHandler) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.authService.SetBanned(r.Context(), a, id, banned); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GrantRole adds the role in the body to the user in the path
func (h *UserHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.RoleChangeRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	if err := h.authService.GrantRole(r.Context(), a, id, req.Role); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeRole removes the role in the path from the user
func (h *UserHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	role := models.UserRole(chi.URLParam(r, "role"))
	if err := h.authService.RevokeRole(r.Context(), a, id, role); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
