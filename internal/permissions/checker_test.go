package permissions

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

type mockDriveService struct {
	GetFileFunc func(ctx context.Context, fileID string) (*drive.File, error)
	calls       int
}

func (m *mockDriveService) GetFile(ctx context.Context, fileID string) (*drive.File, error) {
	m.calls++
	if m.GetFileFunc != nil {
		return m.GetFileFunc(ctx, fileID)
	}
	return nil, errors.New("not implemented")
}

func newTestChecker(t *testing.T, mock *mockDriveService) *Checker {
	t.Helper()
	checker, err := NewChecker(context.Background(), CheckerConfig{
		Factory: func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error) {
			return mock, nil
		},
	}, nil)
	if err != nil {
		t.Fatalf("failed to create checker: %v", err)
	}
	return checker
}

func presentationFile(canEdit bool) *drive.File {
	return &drive.File{
		Id:           "doc-1",
		MimeType:     presentationMimeType,
		Capabilities: &drive.FileCapabilities{CanEdit: canEdit},
	}
}

func TestLevel_String(t *testing.T) {
	testCases := []struct {
		level Level
		want  string
	}{
		{LevelNone, "none"},
		{LevelRead, "read"},
		{LevelWrite, "write"},
		{Level(42), "unknown"},
	}
	for _, tc := range testCases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestChecker_CheckWrite(t *testing.T) {
	testCases := []struct {
		name    string
		file    *drive.File
		err     error
		wantErr error
	}{
		{name: "editor", file: presentationFile(true)},
		{name: "viewer", file: presentationFile(false), wantErr: ErrNoWritePermission},
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}, wantErr: ErrFileNotFound},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, wantErr: ErrNoReadPermission},
		{name: "backend", err: errors.New("connection reset"), wantErr: ErrPermissionCheck},
		{
			name:    "spreadsheet",
			file:    &drive.File{MimeType: "application/vnd.google-apps.spreadsheet"},
			wantErr: ErrNotPresentation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockDriveService{
				GetFileFunc: func(ctx context.Context, fileID string) (*drive.File, error) {
					return tc.file, tc.err
				},
			}
			checker := newTestChecker(t, mock)

			err := checker.CheckWrite(context.Background(), "doc-1")
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestChecker_CheckRead(t *testing.T) {
	mock := &mockDriveService{
		GetFileFunc: func(ctx context.Context, fileID string) (*drive.File, error) {
			return presentationFile(false), nil
		},
	}
	checker := newTestChecker(t, mock)

	if err := checker.CheckRead(context.Background(), "doc-1"); err != nil {
		t.Errorf("expected read access, got %v", err)
	}
}

func TestChecker_CachesLevel(t *testing.T) {
	mock := &mockDriveService{
		GetFileFunc: func(ctx context.Context, fileID string) (*drive.File, error) {
			return presentationFile(true), nil
		},
	}
	checker := newTestChecker(t, mock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := checker.CheckWrite(ctx, "doc-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 Drive call, got %d", mock.calls)
	}

	checker.Invalidate("doc-1")
	_ = checker.CheckWrite(ctx, "doc-1")
	if mock.calls != 2 {
		t.Errorf("expected a fresh Drive call after invalidation, got %d", mock.calls)
	}
}

func TestChecker_ErrorsAreNotCached(t *testing.T) {
	mock := &mockDriveService{
		GetFileFunc: func(ctx context.Context, fileID string) (*drive.File, error) {
			return nil, errors.New("timeout")
		},
	}
	checker := newTestChecker(t, mock)

	_ = checker.CheckRead(context.Background(), "doc-1")
	_ = checker.CheckRead(context.Background(), "doc-1")
	if mock.calls != 2 {
		t.Errorf("expected 2 Drive calls, got %d", mock.calls)
	}
}

func TestNewChecker_FactoryError(t *testing.T) {
	_, err := NewChecker(context.Background(), CheckerConfig{
		Factory: func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error) {
			return nil, errors.New("no credentials")
		},
	}, nil)
	if !errors.Is(err, ErrPermissionCheck) {
		t.Errorf("expected ErrPermissionCheck, got %v", err)
	}
}
