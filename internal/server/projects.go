package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gira/internal/models"
	"gira/internal/tracker"
)

type createProjectRequest struct {
	ProjectName string `json:"project_name" binding:"required"`
}

type viewProjectRequest struct {
	ProjectID string `json:"projectID" binding:"required"`
}

type editProjectRequest struct {
	ProjectID   string `json:"projectID" binding:"required"`
	ProjectName string `json:"project_name" binding:"required"`
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user := currentUser(c)
	project, err := s.tracker.CreateProject(c.Request.Context(), user.ID, req.ProjectName)
	switch {
	case errors.Is(err, tracker.ErrProjectExists):
		s.fail(c, http.StatusBadRequest, "A project with the same name already exists")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not create the project")
		return
	}

	ok(c, gin.H{
		"projectID":    project.ID,
		"project_name": project.ProjectName,
		"created_by":   project.CreatedBy,
		"msg":          "Project successfully created",
	})
}

// handleListProjects returns every project the caller created.
func (s *Server) handleListProjects(c *gin.Context) {
	user := currentUser(c)
	projects, err := s.tracker.ListProjects(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Could not list the projects")
		return
	}

	if len(projects) == 0 {
		ok(c, gin.H{
			"projects": []models.Project{},
			"msg":      "There are no projects to return",
		})
		return
	}

	ok(c, gin.H{
		"projects": projects,
		"msg":      "Projects of the current user successfully listed",
	})
}

// handleViewProject returns one project in the caller's scope.
func (s *Server) handleViewProject(c *gin.Context) {
	var req viewProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	projectID, valid := parseWireID(req.ProjectID)
	if !valid {
		s.fail(c, http.StatusBadRequest, "Invalid project identifier")
		return
	}

	user := currentUser(c)
	project, err := s.tracker.ViewProject(c.Request.Context(), user.ID, projectID)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		s.fail(c, http.StatusNotFound, "No such project found in the scope of this user")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not view the project")
		return
	}

	ok(c, gin.H{
		"project": project,
		"msg":     "Project content returned successfully",
	})
}

// handleEditProject renames a project in the caller's scope.
func (s *Server) handleEditProject(c *gin.Context) {
	var req editProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	projectID, valid := parseWireID(req.ProjectID)
	if !valid {
		s.fail(c, http.StatusBadRequest, "Invalid project identifier")
		return
	}

	user := currentUser(c)
	project, err := s.tracker.EditProject(c.Request.Context(), user.ID, projectID, req.ProjectName)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		s.fail(c, http.StatusNotFound, "No such project exists in the scope of the user")
		return
	case errors.Is(err, tracker.ErrProjectExists):
		s.fail(c, http.StatusBadRequest, "A project with the same name already exists")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not edit the project")
		return
	}

	ok(c, gin.H{
		"project_name": project.ProjectName,
		"msg":          "Project successfully edited",
	})
}

// handleDeleteProject soft-deletes a project and cascades to its issues.
func (s *Server) handleDeleteProject(c *gin.Context) {
	var req viewProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	projectID, valid := parseWireID(req.ProjectID)
	if !valid {
		s.fail(c, http.StatusBadRequest, "Invalid project identifier")
		return
	}

	user := currentUser(c)
	err := s.tracker.DeleteProject(c.Request.Context(), user.ID, projectID)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		s.fail(c, http.StatusNotFound, "No such project exists in the scope of the user")
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Could not delete the project")
		return
	}

	ok(c, gin.H{"msg": "Project and related issues deleted successfully"})
}
