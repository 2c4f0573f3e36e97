package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kevinaaaquil/lexireader/middleware"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Users is the account store behind login.
type Users interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
}

type AuthHandler struct {
	Users     Users
	JWTSecret string
	// Predefined credentials (from config); used if no user exists yet
	DefaultEmail string
	DefaultPass  string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.Users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	if user == nil {
		// first login with the configured credentials seeds the account
		if req.Email != h.DefaultEmail || req.Password != h.DefaultPass {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		if user, err = h.ensureDefaultUser(r.Context()); err != nil {
			handleErr(w, r, err)
			return
		}
	} else if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := middleware.NewToken(h.JWTSecret, user.ID.Hex(), user.Email, time.Now())
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Email: user.Email})
}

func (h *AuthHandler) ensureDefaultUser(ctx context.Context) (*models.User, error) {
	user, err := h.Users.UserByEmail(ctx, h.DefaultEmail)
	if err != nil || user != nil {
		return user, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(h.DefaultPass), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	newUser := &models.User{
		Email:     h.DefaultEmail,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	id, err := h.Users.CreateUser(ctx, newUser)
	if errors.Is(err, store.ErrUserExists) {
		// another request seeded it first
		return h.Users.UserByEmail(ctx, h.DefaultEmail)
	}
	if err != nil {
		return nil, err
	}
	newUser.ID = id
	return newUser, nil
}
