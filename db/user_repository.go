package db

import (
	"github.com/pkg/errors"
	"github.com/studiswap/studiswap/models"
	"gorm.io/gorm"
)

// UserRepository exposes the identity lookups the chat path needs. The
// identity provider owns everything else about users.
type UserRepository interface {
	FindUserByID(id uint) (*models.User, error)
}

type userRepo struct {
	DB *gorm.DB
}

func NewUserRepo(db *GormDB) UserRepository {
	return &userRepo{db.DB}
}

func (r *userRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}
	return &user, nil
}
