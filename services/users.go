package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserView struct {
	UserID    uuid.UUID   `json:"user_id"`
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
	AvatarURL *string     `json:"avatar_url"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

type UserUpdate struct {
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	AvatarURL *string      `json:"avatar_url"`
	Role      *models.Role `json:"role"`
}

// UserService quản lý profile và role; tài khoản đăng nhập do auth provider giữ
type UserService struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewUserService(db *gorm.DB, log *utils.Logger) *UserService {
	return &UserService{db: db, log: log.With("service", "UserService")}
}

// ResolveRole trả role của user; lần đầu gặp user thì tạo profile và role student
func (s *UserService) ResolveRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	if userID == uuid.Nil {
		return "", ErrNotAuthenticated
	}
	var role models.UserRole
	err := s.db.WithContext(ctx).First(&role, "user_id = ?", userID).Error
	if err == nil {
		return role.Role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", storageErr(err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Profile{UserID: userID}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserRole{UserID: userID, Role: models.RoleStudent}).Error
	})
	if err != nil {
		return "", storageErr(err)
	}
	if err := s.db.WithContext(ctx).First(&role, "user_id = ?", userID).Error; err != nil {
		return "", storageErr(err)
	}
	s.log.Info("user provisioned", "user_id", userID, "role", role.Role)
	return role.Role, nil
}

func (s *UserService) List(ctx context.Context, sess Session) ([]UserView, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, storageErr(err)
	}
	var roles []models.UserRole
	if err := s.db.WithContext(ctx).Find(&roles).Error; err != nil {
		return nil, storageErr(err)
	}
	roleOf := make(map[uuid.UUID]models.Role, len(roles))
	for _, r := range roles {
		roleOf[r.UserID] = r.Role
	}

	users := make([]UserView, 0, len(profiles))
	for _, p := range profiles {
		role, ok := roleOf[p.UserID]
		if !ok {
			role = models.RoleStudent
		}
		users = append(users, toUserView(p, role))
	}
	return users, nil
}

func (s *UserService) Me(ctx context.Context, sess Session) (*UserView, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	return s.view(ctx, s.db, sess.UserID)
}

// UpdateMe chỉ cho phép sửa thông tin hiển thị, không đổi role
func (s *UserService) UpdateMe(ctx context.Context, sess Session, in UserUpdate) (*UserView, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	in.Role = nil
	return s.update(ctx, sess.UserID, in)
}

func (s *UserService) Update(ctx context.Context, sess Session, userID uuid.UUID, in UserUpdate) (*UserView, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if in.Role != nil && userID == sess.UserID && *in.Role != models.RoleAdmin {
		return nil, invalidArg("admins cannot remove their own admin role")
	}
	view, err := s.update(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("user updated", "user_id", userID, "admin_id", sess.UserID)
	return view, nil
}

func (s *UserService) update(ctx context.Context, userID uuid.UUID, in UserUpdate) (*UserView, error) {
	if in.Role != nil && !in.Role.Valid() {
		return nil, invalidArg("invalid role %q", *in.Role)
	}

	var view *UserView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.First(&profile, "user_id = ?", userID).Error; err != nil {
			return storageErr(err)
		}
		updates := map[string]interface{}{}
		if in.FirstName != nil {
			updates["first_name"] = trimmedOrNil(in.FirstName)
		}
		if in.LastName != nil {
			updates["last_name"] = trimmedOrNil(in.LastName)
		}
		if in.AvatarURL != nil {
			updates["avatar_url"] = trimmedOrNil(in.AvatarURL)
		}
		if len(updates) > 0 {
			if err := tx.Model(&profile).Updates(updates).Error; err != nil {
				return storageErr(err)
			}
		}
		if in.Role != nil {
			role := models.UserRole{UserID: userID, Role: *in.Role}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
			}).Create(&role).Error; err != nil {
				return storageErr(err)
			}
		}

		v, err := s.view(ctx, tx, userID)
		view = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Delete xóa toàn bộ dữ liệu của user; admin không tự xóa chính mình
func (s *UserService) Delete(ctx context.Context, sess Session, userID uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	if userID == sess.UserID {
		return invalidArg("admins cannot delete their own account")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.Notification{},
			&models.LessonProgress{},
			&models.Enrollment{},
			&models.AccessRequest{},
			&models.UserRole{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return storageErr(err)
			}
		}
		res := tx.Where("user_id = ?", userID).Delete(&models.Profile{})
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", userID, "admin_id", sess.UserID)
	return nil
}

func (s *UserService) view(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*UserView, error) {
	var profile models.Profile
	if err := db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, storageErr(err)
	}
	role := models.RoleStudent
	var r models.UserRole
	if err := db.WithContext(ctx).First(&r, "user_id = ?", userID).Error; err == nil {
		role = r.Role
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr(err)
	}
	v := toUserView(profile, role)
	return &v, nil
}

func toUserView(p models.Profile, role models.Role) UserView {
	return UserView{
		UserID:    p.UserID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		AvatarURL: p.AvatarURL,
		Role:      role,
		CreatedAt: p.CreatedAt,
	}
}

// EnsureAdmin seed tài khoản admin cấu hình qua ADMIN_USER_IDS
func (s *UserService) EnsureAdmin(ctx context.Context, userID uuid.UUID, firstName, lastName string) error {
	if userID == uuid.Nil {
		return invalidArg("admin user id is required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile := models.Profile{UserID: userID, FirstName: normalizeName(firstName), LastName: normalizeName(lastName)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&models.UserRole{UserID: userID, Role: models.RoleAdmin}).Error
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func normalizeName(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
