// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockServer struct {
	listenErr error
	started   chan struct{}
	stop      chan struct{}
	shutdowns int
}

func newMockServer(listenErr error) *mockServer {
	return &mockServer{
		listenErr: listenErr,
		started:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stop
	return errors.New("http: Server closed")
}

func (m *mockServer) Shutdown(context.Context) error {
	m.shutdowns++
	close(m.stop)
	return nil
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("listen: address in use")
	svc := NewHTTPServerService(newMockServer(boom), time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped startup error, got %v", err)
	}
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newMockServer(nil)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}
	if srv.shutdowns != 1 {
		t.Errorf("expected one shutdown call, got %d", srv.shutdowns)
	}
}

func TestServiceString(t *testing.T) {
	t.Parallel()
	svc := NewHTTPServerService(newMockServer(nil), 0)
	if svc.String() != "http-server" {
		t.Errorf("unexpected service name %q", svc.String())
	}
}
