// Package credentials reads partner accounts from the "credentials" tab of a
// Google spreadsheet.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redigma/partner-dashboard/pkg/auth"
	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheet is the tab holding the credential rows.
const DefaultSheet = "credentials"

// Column headers that must be present in the first row.
const (
	ColumnEmail    = "email"
	ColumnPassword = "password"
)

// ErrNotConfigured is returned when the spreadsheet id or service account is missing.
var ErrNotConfigured = errors.New("google sheets credentials not configured")

// Config holds the spreadsheet location and service account.
type Config struct {
	SpreadsheetID string
	Sheet         string

	// ServiceAccountEmail and PrivateKey authenticate as a service account.
	// Literal "\n" sequences in PrivateKey are expanded to newlines.
	ServiceAccountEmail string
	PrivateKey          string
}

// Validate reports missing settings.
func (c Config) Validate() error {
	var missing []string
	if c.SpreadsheetID == "" {
		missing = append(missing, "GOOGLE_SHEET_ID")
	}
	if c.ServiceAccountEmail == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "GOOGLE_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// ExpandPrivateKey turns escaped "\n" sequences into newlines, as they
// appear when a PEM key is stored in a single-line environment variable.
func ExpandPrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// SheetsStore implements auth.CredentialStore over the Sheets API.
type SheetsStore struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheet         string
	logger        zerolog.Logger
}

var _ auth.CredentialStore = (*SheetsStore)(nil)

// NewSheetsStore authenticates with the service account and returns a store.
func NewSheetsStore(ctx context.Context, cfg Config) (*SheetsStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jwtConfig := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(ExpandPrivateKey(cfg.PrivateKey)),
		Scopes:     []string{sheets.SpreadsheetsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewSheetsStoreWithService(svc, cfg.SpreadsheetID, cfg.Sheet), nil
}

// NewSheetsStoreWithService wraps an existing Sheets service.
func NewSheetsStoreWithService(svc *sheets.Service, spreadsheetID, sheet string) *SheetsStore {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &SheetsStore{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logging.NewLogger(logging.ComponentCredentials),
	}
}

// Lookup finds the account whose email cell equals email exactly.
// Returns nil, nil when there is no match.
func (s *SheetsStore) Lookup(ctx context.Context, email string) (*auth.Credential, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", s.sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", s.sheet)
	}

	emailCol, passwordCol, err := headerColumns(resp.Values[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", s.sheet, err)
	}

	for _, row := range resp.Values[1:] {
		if cell(row, emailCol) != email {
			continue
		}
		s.logger.Debug().Str("email", email).Msg("Credential found")
		return &auth.Credential{
			Email:        email,
			PasswordHash: cell(row, passwordCol),
		}, nil
	}
	return nil, nil
}

// headerColumns locates the email and password columns by header name.
func headerColumns(header []interface{}) (emailCol, passwordCol int, err error) {
	emailCol, passwordCol = -1, -1
	for i := range header {
		switch strings.ToLower(strings.TrimSpace(cell(header, i))) {
		case ColumnEmail:
			if emailCol < 0 {
				emailCol = i
			}
		case ColumnPassword:
			if passwordCol < 0 {
				passwordCol = i
			}
		}
	}
	if emailCol < 0 || passwordCol < 0 {
		return 0, 0, fmt.Errorf("header row must contain %q and %q columns", ColumnEmail, ColumnPassword)
	}
	return emailCol, passwordCol, nil
}

// cell returns row[i] as a string, or "" past the end of a short row.
func cell(row []interface{}, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}
