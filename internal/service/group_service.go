package service

import (
	"context"

	"connectrpc.com/connect"
	"github.com/samber/lo"

	"github.com/mmynk/paymenext/internal/ledger"
	"github.com/mmynk/paymenext/internal/models"
)

// GroupServer implements paymenext.v1.GroupService.
type GroupServer struct {
	groups     *ledger.GroupService
	settlement *ledger.SettlementService
}

func NewGroupServer(groups *ledger.GroupService, settlement *ledger.SettlementService) *GroupServer {
	return &GroupServer{groups: groups, settlement: settlement}
}

func (s *GroupServer) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	group, err := s.groups.CreateGroup(ctx, req.Msg.Name, req.Msg.Members)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateGroupResponse{Group: toGroup(group)}), nil
}

func (s *GroupServer) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	group, err := s.groups.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetGroupResponse{Group: toGroup(group)}), nil
}

func (s *GroupServer) ListGroups(ctx context.Context, _ *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListGroupsResponse{
		Groups: lo.Map(groups, func(g *models.Group, _ int) *Group { return toGroup(g) }),
	}), nil
}

// AddMembers appends names to a group's member list.
func (s *GroupServer) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error) {
	group, err := s.groups.AddMembers(ctx, req.Msg.GroupID, req.Msg.Members)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddMembersResponse{Group: toGroup(group)}), nil
}

// DeleteGroup removes a group with all of its expenses.
func (s *GroupServer) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	if err := s.groups.DeleteGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteGroupResponse{}), nil
}

func (s *GroupServer) GetGroupTotal(ctx context.Context, req *connect.Request[GetGroupTotalRequest]) (*connect.Response[GetGroupTotalResponse], error) {
	total, err := s.settlement.GroupTotal(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetGroupTotalResponse{Total: models.FormatAmount(total)}), nil
}

// GetGroupBalances returns each member's outstanding position and a
// simplified set of payments that settles it.
func (s *GroupServer) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	balances, err := s.settlement.GroupBalances(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBalances(balances)), nil
}
