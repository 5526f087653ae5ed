package repositories

import "github.com/batchforge/bom/pkg/domain/entities"

// ProductRepository provides access to product master data
type ProductRepository interface {
	GetProduct(id entities.ProductID) (*entities.Product, error)
	GetAllProducts() ([]*entities.Product, error)
	LoadProducts(products []*entities.Product) error
}
