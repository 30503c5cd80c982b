// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ben-mizel/commonspace/middleware"
	"github.com/ben-mizel/commonspace/models"
)

type UserHandler struct {
	store UserStore
}

func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := middleware.ParseJSONBody(r, &user); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	userID, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		storeError(w, err, "Failed to create user")
		return
	}
	user.UserID = userID

	slog.Info("user created", "user_id", userID)

	middleware.JSONResponse(w, http.StatusCreated, user)
}
