package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gira/internal/auth"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type editUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a new user account.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		s.fail(c, http.StatusBadRequest, "Email already taken")
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		s.fail(c, http.StatusBadRequest, "Username already taken")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not register the user")
		return
	}

	ok(c, gin.H{
		"userID": user.ID,
		"msg":    "The user was successfully registered",
	})
}

// handleLogin checks credentials and returns a fresh bearer token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := s.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrUnknownEmail):
		s.fail(c, http.StatusBadRequest, "This email does not exist.")
		return
	case errors.Is(err, auth.ErrBadCredential):
		s.fail(c, http.StatusBadRequest, "Wrong credentials.")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not log in the user")
		return
	}

	ok(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// handleEditUser changes username, email or password. Fields apply in that
// order; a conflict aborts the remaining fields of the call.
func (s *Server) handleEditUser(c *gin.Context) {
	var req editUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, msg, err := s.auth.UpdateCredential(c.Request.Context(), currentUser(c), auth.CredentialUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		s.fail(c, http.StatusBadRequest, "Username already taken")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		s.fail(c, http.StatusBadRequest, "Email already taken")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not update the user")
		return
	}

	ok(c, gin.H{
		"user": user,
		"msg":  msg,
	})
}

// handleLogout revokes the presented token and closes the session.
func (s *Server) handleLogout(c *gin.Context) {
	token := c.GetHeader("authorization")
	if err := s.auth.Revoke(c.Request.Context(), token, currentUser(c)); err != nil {
		s.fail(c, http.StatusInternalServerError, "Could not log out the user")
		return
	}

	ok(c, gin.H{"msg": "Successfully logged out the user"})
}
