// Package mocks provides gomock implementations of the account ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockAccountAPI(ctrl)
//	api.EXPECT().Me(gomock.Any(), "token").Return(user, nil)
package mocks

// MockAccountAPI: Login, Me, Logout, StartResetPassword, ResetPassword, Register, Activate
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_api_mock.go github.com/serm-lab/admin-console/internal/ports AccountAPI

// MockCredentialStore: Token, SetToken, ClearToken
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/serm-lab/admin-console/internal/ports CredentialStore
