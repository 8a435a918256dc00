package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

var _ ports.TicketRepository = (*MockTicketRepository)(nil)

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Count(ctx context.Context, params ports.ListTicketsRepoParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*domain.Ticket, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// MockTenantRepository is a mock implementation of ports.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

var _ ports.TenantRepository = (*MockTenantRepository)(nil)

func NewMockTenantRepository() *MockTenantRepository {
	return &MockTenantRepository{}
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockCommentRepository is a mock implementation of ports.CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

var _ ports.CommentRepository = (*MockCommentRepository)(nil)

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	args := m.Called(ctx, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

// MockTicketEventRepository is a mock implementation of ports.TicketEventRepository
type MockTicketEventRepository struct {
	mock.Mock
}

var _ ports.TicketEventRepository = (*MockTicketEventRepository)(nil)

func NewMockTicketEventRepository() *MockTicketEventRepository {
	return &MockTicketEventRepository{}
}

func (m *MockTicketEventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockTicketEventRepository) ListByTicketID(ctx context.Context, ticketID int64, afterID int64, limit int) ([]*domain.Event, error) {
	args := m.Called(ctx, ticketID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListByPermission(ctx context.Context, tenantID uuid.UUID, permission string) ([]*domain.User, error) {
	args := m.Called(ctx, tenantID, permission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockAuthorizationRepository is a mock implementation of ports.AuthorizationRepository
type MockAuthorizationRepository struct {
	mock.Mock
}

var _ ports.AuthorizationRepository = (*MockAuthorizationRepository)(nil)

func NewMockAuthorizationRepository() *MockAuthorizationRepository {
	return &MockAuthorizationRepository{}
}

func (m *MockAuthorizationRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAuthorizationRepository) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	args := m.Called(ctx, userID, roleName)
	return args.Error(0)
}

func (m *MockAuthorizationRepository) SetUserRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	args := m.Called(ctx, userID, roleName)
	return args.Error(0)
}

// MockSLAReportRepository is a mock implementation of ports.SLAReportRepository
type MockSLAReportRepository struct {
	mock.Mock
}

var _ ports.SLAReportRepository = (*MockSLAReportRepository)(nil)

func NewMockSLAReportRepository() *MockSLAReportRepository {
	return &MockSLAReportRepository{}
}

func (m *MockSLAReportRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]domain.StatusCount, error) {
	args := m.Called(ctx, tenantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}

func (m *MockSLAReportRepository) ListCreatedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]*domain.Ticket, error) {
	args := m.Called(ctx, tenantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// MockBreachLedger is a mock implementation of ports.BreachLedger
type MockBreachLedger struct {
	mock.Mock
}

var _ ports.BreachLedger = (*MockBreachLedger)(nil)

func NewMockBreachLedger() *MockBreachLedger {
	return &MockBreachLedger{}
}

func (m *MockBreachLedger) MarkNotified(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

var _ ports.AuthorizationService = (*MockAuthorizationService)(nil)

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

var _ ports.TicketService = (*MockTicketService)(nil)

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, params ports.GetTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) AssignTicket(ctx context.Context, params ports.AssignTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) RecordAgentReply(ctx context.Context, params ports.RecordReplyParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Ticket), args.Get(1).(int64), args.Error(2)
}

func (m *MockTicketService) Shutdown() {}

// MockCommentService is a mock implementation of ports.CommentService
type MockCommentService struct {
	mock.Mock
}

var _ ports.CommentService = (*MockCommentService)(nil)

func NewMockCommentService() *MockCommentService {
	return &MockCommentService{}
}

func (m *MockCommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentService) GetCommentsForTicket(ctx context.Context, params ports.GetCommentsParams) ([]*domain.Comment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

// MockEventService is a mock implementation of ports.EventService
type MockEventService struct {
	mock.Mock
}

var _ ports.EventService = (*MockEventService)(nil)

func NewMockEventService() *MockEventService {
	return &MockEventService{}
}

func (m *MockEventService) ListTicketEvents(ctx context.Context, params ports.ListTicketEventsParams) ([]*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

// MockTenantService is a mock implementation of ports.TenantService
type MockTenantService struct {
	mock.Mock
}

var _ ports.TenantService = (*MockTenantService)(nil)

func NewMockTenantService() *MockTenantService {
	return &MockTenantService{}
}

func (m *MockTenantService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantService) Provision(ctx context.Context, tenantID, actorID uuid.UUID, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, tenantID, actorID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantService) UpdateCalendar(ctx context.Context, params ports.UpdateCalendarParams) (*domain.Tenant, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantService) UpdatePolicy(ctx context.Context, params ports.UpdatePolicyParams) (*domain.Tenant, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantService) PreviewDue(ctx context.Context, params ports.PreviewDueParams) (time.Time, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockTenantService) PreviewElapsed(ctx context.Context, params ports.PreviewElapsedParams) (time.Duration, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(time.Duration), args.Error(1)
}

// MockSLAService is a mock implementation of ports.SLAService
type MockSLAService struct {
	mock.Mock
}

var _ ports.SLAService = (*MockSLAService)(nil)

func NewMockSLAService() *MockSLAService {
	return &MockSLAService{}
}

func (m *MockSLAService) GetTicketSLA(ctx context.Context, params ports.GetTicketParams) (*ports.TicketSLA, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TicketSLA), args.Error(1)
}

func (m *MockSLAService) GetComplianceReport(ctx context.Context, tenantID, actorID uuid.UUID, days int) (*domain.ComplianceReport, error) {
	args := m.Called(ctx, tenantID, actorID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceReport), args.Error(1)
}

// MockUserService is a mock implementation of ports.UserService
type MockUserService struct {
	mock.Mock
}

var _ ports.UserService = (*MockUserService)(nil)

func NewMockUserService() *MockUserService {
	return &MockUserService{}
}

func (m *MockUserService) SyncProfile(ctx context.Context, params ports.SyncProfileParams) (*domain.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) ListAssignableUsers(ctx context.Context, actorID, tenantID uuid.UUID) ([]*domain.User, error) {
	args := m.Called(ctx, actorID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserService) UpdateUserRole(ctx context.Context, params ports.UpdateUserRoleParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

var _ ports.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// InlineTransactionManager runs the function directly on the caller's context.
type InlineTransactionManager struct{}

var _ ports.TransactionManager = InlineTransactionManager{}

func (InlineTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
