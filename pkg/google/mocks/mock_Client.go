// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"
	"encoding/json"

	google "github.com/jukenmap/jukenmap/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// DistanceMatrix provides a mock function with given fields: ctx, req
func (_m *MockClient) DistanceMatrix(ctx context.Context, req google.MatrixRequest) (*google.MatrixResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for DistanceMatrix")
	}

	var r0 *google.MatrixResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, google.MatrixRequest) (*google.MatrixResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, google.MatrixRequest) *google.MatrixResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*google.MatrixResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, google.MatrixRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Directions provides a mock function with given fields: ctx, req
func (_m *MockClient) Directions(ctx context.Context, req google.DirectionsRequest) (json.RawMessage, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Directions")
	}

	var r0 json.RawMessage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, google.DirectionsRequest) (json.RawMessage, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, google.DirectionsRequest) json.RawMessage); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(json.RawMessage)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, google.DirectionsRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
