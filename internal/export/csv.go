package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/viaacode/teamleader2db/internal/domain"
	"github.com/viaacode/teamleader2db/internal/logger"
)

// selectPageSize is the number of contact rows read per store round trip.
const selectPageSize = 1000

// csvHeader lists the fixed export columns.
var csvHeader = []string{
	"id", "first_name", "last_name", "email", "phone", "mobile",
	"website", "language", "added_at",
}

// ContactSource reads pages of stored contact documents.
type ContactSource interface {
	SelectPage(ctx context.Context, resource domain.ResourceType, limit, offset int) ([]domain.Document, error)
}

// Service writes the synced contacts to a fixed-column CSV file.
type Service struct {
	source ContactSource
	path   string
}

// NewService creates a new export service writing to path.
func NewService(source ContactSource, path string) *Service {
	return &Service{source: source, path: path}
}

// Path returns the location of the export file.
func (s *Service) Path() string {
	return s.path
}

// ExportCSV streams all contact rows into the CSV file and returns the
// number of exported records. The file is written to a temp path first and
// renamed into place so a concurrent download never sees a partial file.
func (s *Service) ExportCSV(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	tmpPath := s.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}

	total := 0
	for offset := 0; ; offset += selectPageSize {
		docs, err := s.source.SelectPage(ctx, domain.ResourceContacts, selectPageSize, offset)
		if err != nil {
			return total, fmt.Errorf("failed to read contacts page at offset %d: %w", offset, err)
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			record, err := contactRow(doc)
			if err != nil {
				log.Warn("Skipping malformed contact document", "external_id", doc.ExternalID, "error", err)
				continue
			}
			if err := writer.Write(record); err != nil {
				return total, fmt.Errorf("failed to write csv row: %w", err)
			}
			total++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return total, fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return total, fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return total, fmt.Errorf("failed to move export file in place: %w", err)
	}

	log.Info("Contacts csv export completed", "path", s.path, "records", total)
	return total, nil
}

// contactDocument models the slice of a Teamleader contact the export needs.
type contactDocument struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Website    string `json:"website"`
	Language   string `json:"language"`
	AddedAt    string `json:"added_at"`
	Emails     []typedValue `json:"emails"`
	Telephones []typedPhone `json:"telephones"`
}

type typedValue struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

type typedPhone struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

func contactRow(doc domain.Document) ([]string, error) {
	var contact contactDocument
	if err := json.Unmarshal(doc.Content, &contact); err != nil {
		return nil, err
	}
	if contact.ID == "" {
		contact.ID = doc.ExternalID
	}

	return []string{
		contact.ID,
		contact.FirstName,
		contact.LastName,
		primaryEmail(contact.Emails),
		phoneOfType(contact.Telephones, "phone"),
		phoneOfType(contact.Telephones, "mobile"),
		contact.Website,
		contact.Language,
		contact.AddedAt,
	}, nil
}

func primaryEmail(emails []typedValue) string {
	for _, e := range emails {
		if e.Type == "primary" {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func phoneOfType(phones []typedPhone, phoneType string) string {
	for _, p := range phones {
		if p.Type == phoneType {
			return p.Number
		}
	}
	return ""
}
