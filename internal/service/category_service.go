package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"event-planner/internal/model"
	"event-planner/internal/planner"
	"event-planner/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryService manages the user's task categories.
type CategoryService struct {
	categoryRepo *repository.CategoryRepository
	taskRepo     *repository.TaskRepository
	opts         Options
}

func NewCategoryService(categoryRepo *repository.CategoryRepository, taskRepo *repository.TaskRepository, opts Options) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, taskRepo: taskRepo, opts: opts.withDefaults()}
}

// Create adds a category. Color is optional and must be #RRGGBB.
func (s *CategoryService) Create(ctx context.Context, userID, name string, color *string) (*model.Category, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	name, color, err := normalizeCategory(name, color)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, userID, "", name); err != nil {
		return nil, err
	}

	category := model.Category{CreatedBy: userID, Name: name, Color: color}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if err := s.categoryRepo.Create(opCtx, &category); err != nil {
		return nil, storeErr("create category", err)
	}
	s.opts.Log.WithFields(logrus.Fields{"user_id": userID, "category_id": category.ID}).Info("category created")
	return &category, nil
}

func (s *CategoryService) List(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	categories, err := s.categoryRepo.ListByUser(opCtx, userID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, categoryID string) (*model.Category, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	category, err := s.categoryRepo.GetByID(opCtx, userID, categoryID)
	if err != nil {
		return nil, storeErr("find category", err)
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, categoryID, name string, color *string) (*model.Category, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	name, color, err := normalizeCategory(name, color)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, userID, categoryID, name); err != nil {
		return nil, err
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	err = s.categoryRepo.UpdateFields(opCtx, userID, categoryID, map[string]interface{}{
		"name":  name,
		"color": color,
	})
	if err != nil {
		return nil, storeErr("update category", err)
	}
	category, err := s.categoryRepo.GetByID(opCtx, userID, categoryID)
	if err != nil {
		return nil, storeErr("find category", err)
	}
	return category, nil
}

// Delete removes a category no task refers to.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}

	opCtx, cancel := s.opts.opCtx(ctx)
	defer cancel()
	if _, err := s.categoryRepo.GetByID(opCtx, userID, categoryID); err != nil {
		return storeErr("find category", err)
	}
	inUse, err := s.taskRepo.CountByCategory(opCtx, categoryID)
	if err != nil {
		return storeErr("count category tasks", err)
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}
	if err := s.categoryRepo.Delete(opCtx, userID, categoryID); err != nil {
		return storeErr("delete category", err)
	}
	s.opts.Log.WithFields(logrus.Fields{"user_id": userID, "category_id": categoryID}).Info("category deleted")
	return nil
}

// Index loads the user's categories for resolving many tasks at once.
func (s *CategoryService) Index(ctx context.Context, userID string) (planner.CategoryIndex, error) {
	categories, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return planner.NewCategoryIndex(categories), nil
}

// Resolve returns the display label for a task's category. A task without a
// category never touches the store.
func (s *CategoryService) Resolve(ctx context.Context, userID string, categoryID *string) (planner.CategoryLabel, error) {
	if categoryID == nil || *categoryID == "" {
		return planner.ResolveCategory(nil, nil), nil
	}
	categories, err := s.List(ctx, userID)
	if err != nil {
		return planner.CategoryLabel{}, err
	}
	return planner.ResolveCategory(categoryID, categories), nil
}

func (s *CategoryService) ensureUniqueName(ctx context.Context, userID, categoryID, name string) error {
	categories, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ID != categoryID && strings.EqualFold(c.Name, name) {
			return invalid("name", "a category with this name already exists")
		}
	}
	return nil
}

func normalizeCategory(name string, color *string) (string, *string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, invalid("name", "must not be empty")
	}
	if strings.EqualFold(name, planner.UncategorizedName) {
		return "", nil, invalid("name", "is reserved")
	}
	if color == nil {
		return name, nil, nil
	}
	c := strings.ToUpper(strings.TrimSpace(*color))
	if c == "" {
		return name, nil, nil
	}
	if !colorPattern.MatchString(c) {
		return "", nil, invalid("color", "must look like #RRGGBB")
	}
	return name, &c, nil
}
