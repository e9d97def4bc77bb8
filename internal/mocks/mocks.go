// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// -- Handle Mock --

// MockHandle mocks element.Handle.
type MockHandle struct {
	mock.Mock
}

func (m *MockHandle) Describe() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockHandle) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHandle) Visible(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHandle) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockHandle) Click(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockHandle) Type(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// -- Provider Mock --

// MockProvider mocks element.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Find(ctx context.Context, scope element.Handle, d element.Descriptor) (element.Handle, error) {
	args := m.Called(ctx, scope, d)
	h, _ := args.Get(0).(element.Handle)
	return h, args.Error(1)
}

func (m *MockProvider) FindAll(ctx context.Context, scope element.Handle, d element.Descriptor) ([]element.Handle, error) {
	args := m.Called(ctx, scope, d)
	hs, _ := args.Get(0).([]element.Handle)
	return hs, args.Error(1)
}

// ByName matches a Descriptor argument by element name.
func ByName(name string) interface{} {
	return mock.MatchedBy(func(d element.Descriptor) bool { return d.Name == name })
}

var (
	_ element.Handle   = (*MockHandle)(nil)
	_ element.Provider = (*MockProvider)(nil)
)
