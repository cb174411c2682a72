package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viaacode/teamleader2db/internal/domain"
)

// memorySource implements ContactSource over a fixed slice.
type memorySource struct {
	docs []domain.Document
	err  error
}

func (s *memorySource) SelectPage(ctx context.Context, resource domain.ResourceType, limit, offset int) ([]domain.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if offset >= len(s.docs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.docs) {
		end = len(s.docs)
	}
	return s.docs[offset:end], nil
}

func contactDoc(t *testing.T, id string, fields map[string]any) domain.Document {
	t.Helper()
	if fields == nil {
		fields = map[string]any{}
	}
	fields["id"] = id
	content, err := json.Marshal(fields)
	require.NoError(t, err)
	return domain.Document{ExternalID: id, Content: content}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportCSVWritesAllColumns(t *testing.T) {
	source := &memorySource{docs: []domain.Document{
		contactDoc(t, "uuid1", map[string]any{
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"website":    "https://example.com",
			"language":   "en",
			"added_at":   "2021-03-29T16:44:33+00:00",
			"emails": []map[string]string{
				{"type": "invoicing", "email": "billing@example.com"},
				{"type": "primary", "email": "ada@example.com"},
			},
			"telephones": []map[string]string{
				{"type": "phone", "number": "+3212345678"},
				{"type": "mobile", "number": "+32498765432"},
			},
		}),
	}}
	path := filepath.Join(t.TempDir(), "contacts.csv")
	svc := NewService(source, path)

	total, err := svc.ExportCSV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, total)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"uuid1", "Ada", "Lovelace", "ada@example.com",
		"+3212345678", "+32498765432",
		"https://example.com", "en", "2021-03-29T16:44:33+00:00",
	}, records[1])
}

func TestExportCSVEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	svc := NewService(&memorySource{}, path)

	total, err := svc.ExportCSV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, total)

	records := readCSV(t, path)
	require.Len(t, records, 1, "header only")
	assert.Equal(t, csvHeader, records[0])
}

func TestExportCSVMissingFieldsStayBlank(t *testing.T) {
	source := &memorySource{docs: []domain.Document{
		contactDoc(t, "uuid1", map[string]any{"first_name": "Ada"}),
	}}
	path := filepath.Join(t.TempDir(), "contacts.csv")
	svc := NewService(source, path)

	total, err := svc.ExportCSV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, total)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"uuid1", "Ada", "", "", "", "", "", "", ""}, records[1])
}

func TestExportCSVFallsBackToFirstEmail(t *testing.T) {
	source := &memorySource{docs: []domain.Document{
		contactDoc(t, "uuid1", map[string]any{
			"emails": []map[string]string{
				{"type": "invoicing", "email": "billing@example.com"},
			},
		}),
	}}
	path := filepath.Join(t.TempDir(), "contacts.csv")
	svc := NewService(source, path)

	_, err := svc.ExportCSV(context.Background())
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "billing@example.com", records[1][3])
}

func TestExportCSVSkipsMalformedDocument(t *testing.T) {
	source := &memorySource{docs: []domain.Document{
		{ExternalID: "broken", Content: json.RawMessage(`not json`)},
		contactDoc(t, "uuid2", map[string]any{"first_name": "Grace"}),
	}}
	path := filepath.Join(t.TempDir(), "contacts.csv")
	svc := NewService(source, path)

	total, err := svc.ExportCSV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, total)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "uuid2", records[1][0])
}

func TestExportCSVReplacesPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")

	first := NewService(&memorySource{docs: []domain.Document{
		contactDoc(t, "uuid1", nil),
		contactDoc(t, "uuid2", nil),
	}}, path)
	_, err := first.ExportCSV(context.Background())
	require.NoError(t, err)

	second := NewService(&memorySource{docs: []domain.Document{
		contactDoc(t, "uuid3", nil),
	}}, path)
	_, err = second.ExportCSV(context.Background())
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 2, "re-export fully replaces the old file")
	assert.Equal(t, "uuid3", records[1][0])
}

func TestExportCSVStorageErrorKeepsOldFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous export"), 0o644))

	svc := NewService(&memorySource{err: errors.New("connection refused")}, path)
	_, err := svc.ExportCSV(context.Background())

	require.Error(t, err)
	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "previous export", string(content))
}
