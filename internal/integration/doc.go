// Package integration provides end-to-end tests for the Slides content API
// against the real Google Slides and Drive APIs.
//
// # Running Integration Tests
//
// Integration tests are skipped by default unless the INTEGRATION_TEST environment
// variable is set:
//
//	INTEGRATION_TEST=1 go test -v ./internal/integration/...
//
// # Required Environment Variables
//
//   - INTEGRATION_TEST: Set to "1" to enable integration tests
//   - GOOGLE_SERVICE_ACCOUNT_FILE: Service account JSON key with Slides and Drive access
//   - TEST_PRESENTATION_ID: (Optional) Existing presentation for read-only tests
//
// # Test Fixtures
//
// Each test builds its own presentation holding a use case table made of
// text boxes, and deletes it through the Drive API when the test ends.
//
// # Test Structure
//
//   - auth_test.go: credential loading and the Drive permission check
//   - read_test.go: document tree walk and empty cell detection
//   - write_test.go: planning and writing use cases and direct cells
package integration
