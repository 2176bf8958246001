package internal

import (
	"go.uber.org/zap"

	"construction-api/internal/models"
	"construction-api/internal/store"
)

type supplierHandler = resourceHandler[models.Supplier, models.SupplierInput, models.SupplierPatch]

// newSupplierHandler serves /suppliers.
func newSupplierHandler(repo store.Repository[models.Supplier], logger *zap.Logger) *supplierHandler {
	return newResourceHandler[models.Supplier, models.SupplierInput, models.SupplierPatch]("Supplier", repo, logger)
}
