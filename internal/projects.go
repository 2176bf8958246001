package internal

import (
	"go.uber.org/zap"

	"construction-api/internal/models"
	"construction-api/internal/store"
)

type projectHandler = resourceHandler[models.Project, models.ProjectInput, models.ProjectPatch]

// newProjectHandler serves /projects.
func newProjectHandler(repo store.Repository[models.Project], logger *zap.Logger) *projectHandler {
	return newResourceHandler[models.Project, models.ProjectInput, models.ProjectPatch]("Project", repo, logger)
}
