package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"order-analysis/internal/orders"
)

// SheetsConfig points at a range of a Google spreadsheet whose first row is
// the header. Credentials are either an OAuth refresh token or a service
// account key file.
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	CredentialsFile string

	// Endpoint overrides the API base URL; used against local fakes.
	Endpoint   string
	HTTPClient *http.Client
}

// SheetsSource reads orders from a spreadsheet range.
type SheetsSource struct {
	service *sheets.Service
	config  SheetsConfig
	loc     *time.Location
	logger  *slog.Logger
}

// NewSheetsSource authenticates and builds the Sheets API client.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig, loc *time.Location, logger *slog.Logger) (*SheetsSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if cfg.Range == "" {
		cfg.Range = "Sheet1"
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := sheetsClientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &SheetsSource{service: service, config: cfg, loc: loc, logger: logger}, nil
}

func sheetsClientOptions(ctx context.Context, cfg SheetsConfig) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.RefreshToken != "":
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
			Endpoint:     google.Endpoint,
		}
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"}
		opts = append(opts, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	default:
		return nil, errors.New("sheets source needs a refresh token or a credentials file")
	}
	return opts, nil
}

// Name identifies the source in caches and run logs.
func (s *SheetsSource) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.config.SpreadsheetID, s.config.Range)
}

// Fetch reads the range with formatted values and decodes it.
func (s *SheetsSource) Fetch(ctx context.Context) (*orders.Table, error) {
	start := time.Now()

	resp, err := s.service.Spreadsheets.Values.Get(s.config.SpreadsheetID, s.config.Range).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}

	if len(resp.Values) == 0 {
		table := orders.NewTable(nil)
		logDecoded(s.logger, s.Name(), table, time.Since(start))
		return table, nil
	}

	header := cellsToStrings(resp.Values[0])
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		rows = append(rows, cellsToStrings(row))
	}

	table, err := orders.FromRows(header, rows, s.loc)
	if err != nil {
		return nil, err
	}
	logDecoded(s.logger, s.Name(), table, time.Since(start))
	return table, nil
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = fmt.Sprint(c)
		}
	}
	return out
}
