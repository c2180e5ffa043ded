package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"

	"github.com/smorand/slides-content-api/internal/auth"
	"github.com/smorand/slides-content-api/internal/docstore"
	"github.com/smorand/slides-content-api/internal/service"
	"github.com/smorand/slides-content-api/internal/template"
)

// Environment variable names for integration tests.
const (
	EnvIntegrationTest    = "INTEGRATION_TEST"
	EnvServiceAccountFile = "GOOGLE_SERVICE_ACCOUNT_FILE"
	EnvTestPresentationID = "TEST_PRESENTATION_ID"
)

// Table geometry for fixture presentations, in points.
var (
	columnLeftPT = []float64{30, 300, 420, 560}
	columnWidth  = []float64{260, 110, 130, 130}
)

const (
	headerTopPT = 60
	rowHeightPT = 70
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	ServiceAccountFile string
	TestPresentationID string
}

// SkipIfNoIntegration skips the test if integration tests are not enabled.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationTest) != "1" {
		t.Skip("Integration tests are disabled. Set INTEGRATION_TEST=1 to enable.")
	}
}

// LoadConfig loads test configuration from environment variables.
func LoadConfig(t *testing.T) *TestConfig {
	t.Helper()

	path := os.Getenv(EnvServiceAccountFile)
	if path == "" {
		t.Skipf("Missing required environment variable %s", EnvServiceAccountFile)
	}

	return &TestConfig{
		ServiceAccountFile: path,
		TestPresentationID: os.Getenv(EnvTestPresentationID),
	}
}

// Fixtures manages test presentations and cleanup.
type Fixtures struct {
	t            *testing.T
	config       *TestConfig
	credentials  *auth.Credentials
	slidesClient *slides.Service
	driveClient  *drive.Service

	mu            sync.Mutex
	presentations []string
}

// NewFixtures creates a new test fixtures manager.
func NewFixtures(t *testing.T, config *TestConfig) *Fixtures {
	t.Helper()

	ctx := context.Background()
	creds, err := auth.LoadCredentialsFile(ctx, config.ServiceAccountFile, slides.PresentationsScope, drive.DriveScope)
	if err != nil {
		t.Fatalf("Failed to load credentials: %v", err)
	}

	slidesClient, err := slides.NewService(ctx, option.WithTokenSource(creds.TokenSource()))
	if err != nil {
		t.Fatalf("Failed to create Slides service: %v", err)
	}
	driveClient, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource()))
	if err != nil {
		t.Fatalf("Failed to create Drive service: %v", err)
	}

	f := &Fixtures{
		t:            t,
		config:       config,
		credentials:  creds,
		slidesClient: slidesClient,
		driveClient:  driveClient,
	}
	t.Cleanup(f.Cleanup)
	return f
}

// TokenSource returns the service account token source.
func (f *Fixtures) TokenSource() oauth2.TokenSource {
	return f.credentials.TokenSource()
}

// Credentials returns the loaded service account.
func (f *Fixtures) Credentials() *auth.Credentials {
	return f.credentials
}

// NewService builds the service stack against the real APIs.
func (f *Fixtures) NewService() *service.Service {
	f.t.Helper()

	store, err := docstore.New(context.Background(), docstore.Config{
		Style: template.Default().Style,
	}, f.TokenSource())
	if err != nil {
		f.t.Fatalf("Failed to create document store: %v", err)
	}

	svc, err := service.New(service.Config{Store: store})
	if err != nil {
		f.t.Fatalf("Failed to create service: %v", err)
	}
	return svc
}

// CreateTablePresentation creates a presentation whose first slide holds a
// header row and emptyRows empty rows of the four column use case table.
// It returns the presentation ID and the object IDs of the empty cells,
// row by row, left to right.
func (f *Fixtures) CreateTablePresentation(title string, emptyRows int) (string, [][]string) {
	f.t.Helper()

	ctx, cancel := TestTimeout(f.t)
	defer cancel()

	created, err := f.slidesClient.Presentations.Create(&slides.Presentation{Title: title}).Context(ctx).Do()
	if err != nil {
		f.t.Fatalf("Failed to create test presentation: %v", err)
	}
	f.TrackPresentation(created.PresentationId)
	f.t.Logf("Created test presentation: %s (ID: %s)", title, created.PresentationId)

	slideID := created.Slides[0].ObjectId
	prefix := fmt.Sprintf("uc%d", time.Now().UnixNano())

	headers := []string{"Use case", "Department", "Impact", "Data sources"}
	var requests []*slides.Request
	// Layout placeholders sit in the first column band.
	for _, element := range created.Slides[0].PageElements {
		requests = append(requests, &slides.Request{DeleteObject: &slides.DeleteObjectRequest{ObjectId: element.ObjectId}})
	}
	for col, header := range headers {
		id := fmt.Sprintf("%s_h%d", prefix, col)
		requests = append(requests, textBox(id, slideID, col, headerTopPT)...)
		requests = append(requests, &slides.Request{InsertText: &slides.InsertTextRequest{ObjectId: id, Text: header}})
	}

	cells := make([][]string, emptyRows)
	for row := 0; row < emptyRows; row++ {
		top := float64(headerTopPT + rowHeightPT*(row+1))
		for col := range headers {
			id := fmt.Sprintf("%s_r%dc%d", prefix, row+1, col)
			requests = append(requests, textBox(id, slideID, col, top)...)
			cells[row] = append(cells[row], id)
		}
	}

	_, err = f.slidesClient.Presentations.BatchUpdate(created.PresentationId, &slides.BatchUpdatePresentationRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		f.t.Fatalf("Failed to build table: %v", err)
	}
	return created.PresentationId, cells
}

// textBox returns the request creating one empty table cell text box.
func textBox(id, slideID string, col int, top float64) []*slides.Request {
	return []*slides.Request{{
		CreateShape: &slides.CreateShapeRequest{
			ObjectId:  id,
			ShapeType: "TEXT_BOX",
			ElementProperties: &slides.PageElementProperties{
				PageObjectId: slideID,
				Size: &slides.Size{
					Width:  &slides.Dimension{Magnitude: columnWidth[col], Unit: "PT"},
					Height: &slides.Dimension{Magnitude: rowHeightPT - 10, Unit: "PT"},
				},
				Transform: &slides.AffineTransform{
					ScaleX:     1,
					ScaleY:     1,
					TranslateX: columnLeftPT[col],
					TranslateY: top,
					Unit:       "PT",
				},
			},
		},
	}}
}

// CellText returns the current text of an object.
func (f *Fixtures) CellText(presentationID, objectID string) string {
	f.t.Helper()

	ctx, cancel := TestTimeout(f.t)
	defer cancel()

	pres, err := f.slidesClient.Presentations.Get(presentationID).Context(ctx).Do()
	if err != nil {
		f.t.Fatalf("Failed to get presentation %s: %v", presentationID, err)
	}
	for _, slide := range pres.Slides {
		for _, element := range slide.PageElements {
			if element.ObjectId != objectID || element.Shape == nil || element.Shape.Text == nil {
				continue
			}
			var text string
			for _, te := range element.Shape.Text.TextElements {
				if te.TextRun != nil {
					text += te.TextRun.Content
				}
			}
			return text
		}
	}
	return ""
}

// TrackPresentation adds a presentation ID to the cleanup list.
func (f *Fixtures) TrackPresentation(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presentations = append(f.presentations, id)
}

// Cleanup deletes every presentation created by the test.
func (f *Fixtures) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range f.presentations {
		if id == f.config.TestPresentationID {
			continue
		}
		if err := f.driveClient.Files.Delete(id).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
			f.t.Logf("Warning: failed to delete test presentation %s: %v", id, err)
		} else {
			f.t.Logf("Deleted test presentation: %s", id)
		}
	}
	f.presentations = nil
}

// TestTimeout returns a context with a standard timeout for integration tests.
func TestTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 60*time.Second)
}
