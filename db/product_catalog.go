package db

import (
	"github.com/pkg/errors"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
	"gorm.io/gorm"
)

// ProductCatalog is the external catalog collaborator: who sells product X,
// what is it called, is it still live. This adapter reads the shared table;
// a remote catalog client can replace it without touching the chat path.
type ProductCatalog interface {
	GetActiveProduct(id uint) (*models.Product, error)
	GetProduct(id uint) (*models.Product, error)
}

type productCatalog struct {
	DB *gorm.DB
}

func NewProductCatalog(db *GormDB) ProductCatalog {
	return &productCatalog{db.DB}
}

func (r *productCatalog) GetActiveProduct(id uint) (*models.Product, error) {
	var product models.Product
	err := r.DB.Where("id = ? AND status = ?", id, models.ProductStatusActive).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "failed to find product")
	}
	return &product, nil
}

func (r *productCatalog) GetProduct(id uint) (*models.Product, error) {
	var product models.Product
	err := r.DB.First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "failed to find product")
	}
	return &product, nil
}
