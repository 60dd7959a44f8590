package services

import (
	"context"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
	"bizdesk/internal/utils"
)

// FoodService manages recipes and shopping lists.
type FoodService struct {
	Recipes *ScopedService[models.Recipe, *models.Recipe]
	Lists   *ScopedService[models.ShoppingList, *models.ShoppingList]
	Items   *ScopedService[models.ShoppingItem, *models.ShoppingItem]
	db      *gorm.DB
}

func NewFoodService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *FoodService {
	return &FoodService{
		Recipes: NewScopedService[models.Recipe](db, policy, bus, models.ModuleFood).
			WithFilters("name", "servings").
			WithBeforeSave(func(_ *gorm.DB, _ string, r *models.Recipe) error {
				_, err := recipeIngredients(r)
				return err
			}),
		Lists: NewScopedService[models.ShoppingList](db, policy, bus, models.ModuleFood).
			WithFilters("name").
			WithPreloads("Items"),
		Items: NewScopedService[models.ShoppingItem](db, policy, bus, models.ModuleFood).
			WithFilters("list_id", "checked", "name").
			WithBeforeSave(func(tx *gorm.DB, ws string, it *models.ShoppingItem) error {
				return requireInWorkspace(tx, &models.ShoppingList{}, ws, it.ListID, "shopping list")
			}),
		db: db,
	}
}

func recipeIngredients(r *models.Recipe) ([]models.Ingredient, error) {
	out, err := utils.DecodeJSON[[]models.Ingredient](r.Ingredients)
	if err != nil {
		return nil, errs.Validation("ingredients must be a list of {name, quantity}")
	}
	return out, nil
}

// DeleteList removes a shopping list and its items.
func (s *FoodService) DeleteList(ctx context.Context, scope Scope, id string) error {
	return s.Lists.DeleteWith(ctx, scope, id, func(tx *gorm.DB, l *models.ShoppingList) error {
		if err := tx.Where("workspace_id = ? AND list_id = ?", scope.WorkspaceID, l.ID).Delete(&models.ShoppingItem{}).Error; err != nil {
			return errs.Internal("failed to delete shopping items", err)
		}
		return nil
	})
}

// ToggleItem flips the checked flag of an item.
func (s *FoodService) ToggleItem(ctx context.Context, scope Scope, id string) (*models.ShoppingItem, error) {
	if _, err := s.Items.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	item, err := s.Items.Find(ctx, s.db, scope.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	item.Checked = !item.Checked
	if err := s.db.WithContext(ctx).Model(item).Update("checked", item.Checked).Error; err != nil {
		return nil, errs.Internal("failed to update shopping item", err)
	}
	s.Items.publish(scope.WorkspaceID, "updated", item.ID)
	return item, nil
}

// ClearChecked deletes the checked items of a list and returns how many were removed.
func (s *FoodService) ClearChecked(ctx context.Context, scope Scope, listID string) (int64, error) {
	if _, err := s.Items.Authorize(ctx, scope, models.CapDelete); err != nil {
		return 0, err
	}
	if _, err := s.Lists.Find(ctx, s.db, scope.WorkspaceID, listID); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).
		Where("workspace_id = ? AND list_id = ? AND checked = ?", scope.WorkspaceID, listID, true).
		Delete(&models.ShoppingItem{})
	if res.Error != nil {
		return 0, errs.Internal("failed to clear shopping items", res.Error)
	}
	if res.RowsAffected > 0 {
		s.Items.publish(scope.WorkspaceID, "deleted", "")
	}
	return res.RowsAffected, nil
}

// AddRecipeToList appends one unchecked item per recipe ingredient.
func (s *FoodService) AddRecipeToList(ctx context.Context, scope Scope, recipeID, listID string) ([]models.ShoppingItem, error) {
	if _, err := s.Items.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	recipe, err := s.Recipes.Find(ctx, s.db, scope.WorkspaceID, recipeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Lists.Find(ctx, s.db, scope.WorkspaceID, listID); err != nil {
		return nil, err
	}
	ingredients, err := recipeIngredients(recipe)
	if err != nil {
		return nil, err
	}
	if len(ingredients) == 0 {
		return nil, errs.Validation("recipe has no ingredients")
	}

	items := make([]models.ShoppingItem, 0, len(ingredients))
	for _, ing := range ingredients {
		it := models.ShoppingItem{ListID: listID, Name: ing.Name, Quantity: ing.Quantity}
		it.WorkspaceID = scope.WorkspaceID
		it.CreatedBy = scope.Caller.UserID
		items = append(items, it)
	}
	if err := s.db.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, errs.Internal("failed to add recipe to list", err)
	}
	s.Items.publish(scope.WorkspaceID, "created", "")
	return items, nil
}
