package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gira/internal/models"
	"gira/internal/tracker"
)

type createIssueRequest struct {
	Title         string `json:"issue_title" binding:"required"`
	Type          string `json:"issue_type" binding:"required"`
	ParentProject int64  `json:"parent_project" binding:"required"`
}

type viewIssueRequest struct {
	IssueID string `json:"issueID" binding:"required"`
}

type editIssueRequest struct {
	IssueID       string `json:"issueID" binding:"required"`
	Title         string `json:"issue_title"`
	Type          string `json:"issue_type"`
	Status        string `json:"issue_status"`
	ParentProject *int64 `json:"parent_project"`
}

// handleCreateIssue files a new issue under a project in the caller's scope.
func (s *Server) handleCreateIssue(c *gin.Context) {
	var req createIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, valid := models.ValidIssueTypes[req.Type]; !valid {
		s.fail(c, http.StatusBadRequest, "Issue type must be one of Bug, Improvement or Feature")
		return
	}

	issue, err := s.tracker.CreateIssue(c.Request.Context(), currentUser(c), req.Title, req.Type, req.ParentProject)
	switch {
	case errors.Is(err, tracker.ErrParentNotFound):
		s.fail(c, http.StatusBadRequest, "No such project exists in the scope of the user")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not create the issue")
		return
	}

	ok(c, gin.H{
		"issueID":        issue.ID,
		"issue_title":    issue.Title,
		"issue_type":     issue.Type,
		"issue_status":   issue.Status,
		"parent_project": issue.ParentProject,
		"created_by":     issue.CreatedBy,
		"msg":            "Issue successfully created",
	})
}

// handleViewIssue returns one issue reachable through the caller's projects.
func (s *Server) handleViewIssue(c *gin.Context) {
	var req viewIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	issueID, valid := parseWireID(req.IssueID)
	if !valid {
		s.fail(c, http.StatusBadRequest, "Invalid issue identifier")
		return
	}

	user := currentUser(c)
	issue, err := s.tracker.ViewIssue(c.Request.Context(), user.ID, issueID)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		s.fail(c, http.StatusNotFound, "No such issue found in the scope of this user")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not view the issue")
		return
	}

	ok(c, gin.H{
		"issue": issue,
		"msg":   "Issue content returned successfully",
	})
}

// handleEditIssue changes issue fields and optionally reparents the issue.
func (s *Server) handleEditIssue(c *gin.Context) {
	var req editIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	issueID, valid := parseWireID(req.IssueID)
	if !valid {
		s.fail(c, http.StatusBadRequest, "Invalid issue identifier")
		return
	}
	if req.Type != "" {
		if _, valid := models.ValidIssueTypes[req.Type]; !valid {
			s.fail(c, http.StatusBadRequest, "Issue type must be one of Bug, Improvement or Feature")
			return
		}
	}
	if req.Status != "" {
		if _, valid := models.ValidIssueStatuses[req.Status]; !valid {
			s.fail(c, http.StatusBadRequest, "Issue status must be one of To Do, In Progress or Done")
			return
		}
	}

	user := currentUser(c)
	issue, msg, err := s.tracker.EditIssue(c.Request.Context(), user.ID, issueID, tracker.IssueUpdate{
		Title:  req.Title,
		Type:   req.Type,
		Status: req.Status,
		Parent: req.ParentProject,
	})
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		s.fail(c, http.StatusNotFound, "No such issue found in the scope of this user")
		return
	case errors.Is(err, tracker.ErrNewParentNotFound):
		s.fail(c, http.StatusNotFound, "No such project exists in the scope of the user")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not edit the issue")
		return
	}

	ok(c, gin.H{
		"issue": issue,
		"msg":   msg,
	})
}

// handleDeleteIssue soft-deletes an issue in the caller's scope.
func (s *Server) handleDeleteIssue(c *gin.Context) {
	var req viewIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	issueID, valid := parseWireID(req.IssueID)
	if !valid {
		s.fail(c, http.StatusBadRequest, "Invalid issue identifier")
		return
	}

	user := currentUser(c)
	err := s.tracker.DeleteIssue(c.Request.Context(), user.ID, issueID)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		s.fail(c, http.StatusNotFound, "No such issue found in the scope of this user")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not delete the issue")
		return
	}

	ok(c, gin.H{"msg": "Issue successfully deleted"})
}
