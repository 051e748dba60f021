// Package mocks provides gomock implementations of the repository ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	users := mocks.NewMockUserRepository(ctrl)
//	users.EXPECT().GetByEmail(gomock.Any(), "a@example.test").Return(user, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/agentqa/qa-dashboard/internal/core UserRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=agent_repository_mock.go github.com/agentqa/qa-dashboard/internal/core AgentRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=test_run_repository_mock.go github.com/agentqa/qa-dashboard/internal/core TestRunRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=api_key_repository_mock.go github.com/agentqa/qa-dashboard/internal/core APIKeyRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/agentqa/qa-dashboard/internal/core CacheRepository
