package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/paymenext/internal/models"
	"github.com/mmynk/paymenext/internal/storage"
)

// GroupService manages groups and their member lists.
type GroupService struct {
	store storage.Store
	opts  options
}

func NewGroupService(store storage.Store, opts ...Option) *GroupService {
	return &GroupService{store: store, opts: buildOptions("groups", opts)}
}

// CreateGroup creates a group. Member names may repeat.
func (s *GroupService) CreateGroup(ctx context.Context, name string, members []string) (*models.Group, error) {
	group := &models.Group{
		Name:      name,
		Members:   members,
		CreatedAt: s.opts.now(),
	}
	if group.Members == nil {
		group.Members = []string{}
	}
	if err := models.Validate(group); err != nil {
		return nil, err
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.opts.logger.Info("Group created", "group_id", group.ID, "name", group.Name, "members", len(group.Members))
	return group, nil
}

func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

func (s *GroupService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.store.ListGroups(ctx)
}

// AddMembers appends names to a group and returns the updated group.
func (s *GroupService) AddMembers(ctx context.Context, groupID string, names []string) (*models.Group, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no members to add", models.ErrValidation)
	}
	for _, name := range names {
		if err := models.ValidateVar("member", name, "required,max=100"); err != nil {
			return nil, err
		}
	}

	if err := s.store.AddGroupMembers(ctx, groupID, names); err != nil {
		return nil, fmt.Errorf("failed to add members: %w", err)
	}
	return s.store.GetGroup(ctx, groupID)
}

// DeleteGroup removes a group with all of its expenses, split entries and
// reminders.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	s.opts.logger.Info("Group deleted", "group_id", groupID)
	return nil
}
